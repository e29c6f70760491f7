package services

import (
	"log/slog"

	"github.com/heshbonit/receipt-pipeline/internal/core/categorize"
	portsrepo "github.com/heshbonit/receipt-pipeline/internal/core/ports/repositories"
	portssvc "github.com/heshbonit/receipt-pipeline/internal/core/ports/services"
	"github.com/heshbonit/receipt-pipeline/internal/platform/config"
	"github.com/shopspring/decimal"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, recognizer portssvc.Recognizer) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	vatRate := decimal.NewFromFloat(cfg.VATRate)

	categorizer := categorize.NewDefault()
	if cfg.CategoryRulesPath != "" {
		rules, err := categorize.LoadRules(cfg.CategoryRulesPath)
		if err != nil {
			slog.Warn("Failed to load category rules, using defaults",
				slog.String("path", cfg.CategoryRulesPath),
				slog.String("error", err.Error()))
		} else {
			categorizer = categorize.New(rules)
		}
	}

	container.Receipt = NewReceiptService(
		repos.ReceiptRepo,
		repos.FieldEditRepo,
		WithReceiptVATRate(vatRate),
	)

	container.Pipeline = NewPipelineService(
		repos.ReceiptRepo,
		repos.CategoryRepo,
		recognizer,
		WithCategorizer(categorizer),
		WithVATRate(vatRate),
		WithRecognitionTimeout(cfg.RecognitionTimeout),
		WithPollInterval(cfg.PipelinePollInterval),
		WithWorkers(cfg.PipelineWorkers),
	)

	return container
}
