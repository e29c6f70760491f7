// Package recognition adapts external text-detection providers to the
// pipeline's Recognizer port.
package recognition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/heshbonit/receipt-pipeline/internal/apperrors"
	portssvc "github.com/heshbonit/receipt-pipeline/internal/core/ports/services"
	"google.golang.org/api/option"
)

// transcriptionPrompt asks for a verbatim transcription. Field extraction
// happens downstream; the model should not interpret the receipt.
const transcriptionPrompt = "Transcribe all visible text from this receipt image verbatim, " +
	"one line of the receipt per line of output. Preserve the original language, " +
	"numbers and punctuation exactly as printed. Output only the transcribed text."

// Gemini implements the Recognizer port using Google Gemini vision models.
// Receipt images live under a local storage root; file references are paths
// relative to it.
type Gemini struct {
	client      *genai.Client
	model       *genai.GenerativeModel
	storageRoot string
}

// NewGemini creates a Gemini-backed recognizer.
func NewGemini(ctx context.Context, apiKey, modelName, storageRoot string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       client.GenerativeModel(modelName),
		storageRoot: storageRoot,
	}, nil
}

// Ensure Gemini implements the Recognizer port
var _ portssvc.Recognizer = (*Gemini)(nil)

// Recognize reads the referenced image and returns its transcribed text. The
// caller bounds ctx; no internal timeout is applied.
func (g *Gemini) Recognize(ctx context.Context, fileRef string) (string, error) {
	path, err := g.resolvePath(fileRef)
	if err != nil {
		return "", err
	}
	imageData, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading receipt image %s: %w", fileRef, err)
	}

	parts := []genai.Part{
		genai.ImageData(imageFormat(fileRef), imageData),
		genai.Text(transcriptionPrompt),
	}
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating transcription: %w: %w", apperrors.ErrRecognition, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty gemini response: %w", apperrors.ErrRecognition)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return strings.TrimSpace(text.String()), nil
}

// Close closes the underlying Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// resolvePath joins the reference onto the storage root and rejects
// references that would escape it.
func (g *Gemini) resolvePath(fileRef string) (string, error) {
	if fileRef == "" {
		return "", fmt.Errorf("empty file reference")
	}
	cleaned := filepath.Clean(fileRef)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file reference %q escapes storage root", fileRef)
	}
	return filepath.Join(g.storageRoot, cleaned), nil
}

// imageFormat maps the file extension onto the format suffix genai expects
// ("jpeg", not "image/jpeg").
func imageFormat(fileRef string) string {
	switch strings.ToLower(filepath.Ext(fileRef)) {
	case ".png":
		return "png"
	case ".webp":
		return "webp"
	case ".heic":
		return "heic"
	default:
		return "jpeg"
	}
}
