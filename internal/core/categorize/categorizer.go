// Package categorize maps vendor names onto expense categories through an
// ordered keyword rule table. Rules are immutable configuration injected at
// construction; alternate tables can be loaded from YAML.
package categorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/heshbonit/receipt-pipeline/internal/core/extraction"
	"gopkg.in/yaml.v3"
)

// Rule binds a keyword set to one category. Keywords may be Hebrew or Latin;
// they are normalized before matching.
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Categorizer tests a normalized vendor name against its rules in order;
// the first rule with any matching keyword wins.
type Categorizer struct {
	rules []compiledRule
}

type compiledRule struct {
	category string
	keywords []string
}

// New builds a Categorizer from an ordered rule table.
func New(rules []Rule) *Categorizer {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		cr := compiledRule{category: r.Category}
		for _, kw := range r.Keywords {
			if n := extraction.Normalize(kw); n != "" {
				cr.keywords = append(cr.keywords, n)
			}
		}
		if len(cr.keywords) > 0 {
			compiled = append(compiled, cr)
		}
	}
	return &Categorizer{rules: compiled}
}

// NewDefault builds a Categorizer with the compiled-in bilingual rule table.
func NewDefault() *Categorizer {
	return New(DefaultRules())
}

// LoadRules reads an ordered rule table from a YAML file, for deployments
// that maintain their own keyword sets.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category rules from %s: %w", path, err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing category rules from %s: %w", path, err)
	}
	return rules, nil
}

// Categorize returns the category name for a vendor, or "" when nothing
// matches. No match is a valid terminal outcome that asks for human
// classification, not an error.
func (c *Categorizer) Categorize(vendorName string) string {
	norm := extraction.Normalize(vendorName)
	if norm == "" {
		return ""
	}
	for _, rule := range c.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(norm, kw) {
				return rule.category
			}
		}
	}
	return ""
}

// DefaultRules is the built-in bilingual keyword table. Order matters: more
// specific vendors come before generic keywords.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: "Transportation",
			Keywords: []string{
				"דלק", "פז", "סונול", "דור אלון", "תחבורה", "מונית", "חניה",
				"fuel", "gas station", "paz", "sonol", "taxi", "parking", "gett",
			},
		},
		{
			Category: "Groceries",
			Keywords: []string{
				"שופרסל", "רמי לוי", "ויקטורי", "סופר", "מכולת",
				"supermarket", "grocery", "shufersal", "market",
			},
		},
		{
			Category: "Food & Dining",
			Keywords: []string{
				"מסעדה", "קפה", "פיצה", "בורגר", "שווארמה",
				"restaurant", "cafe", "coffee", "pizza", "burger", "falafel",
			},
		},
		{
			Category: "Office Supplies",
			Keywords: []string{
				"משרד", "נייר", "דפוס",
				"office", "paper", "print", "stationery",
			},
		},
		{
			Category: "Utilities",
			Keywords: []string{
				"חשמל", "מים", "ארנונה", "בזק", "סלקום", "פרטנר",
				"electric", "water", "internet", "cellular", "bezeq",
			},
		},
		{
			Category: "Professional Services",
			Keywords: []string{
				"עורך דין", "רואה חשבון", "ייעוץ",
				"lawyer", "accountant", "consulting", "attorney",
			},
		},
	}
}
