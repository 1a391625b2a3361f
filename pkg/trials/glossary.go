package trials

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/clinprot/regdocs/pkg/common/models"
	"gopkg.in/yaml.v3"
)

// GlossaryTerm explains one criteria category or clinical concept to
// reviewers reading the extracted rules.
type GlossaryTerm struct {
	Term       string `yaml:"term" json:"term"`
	Display    string `yaml:"display" json:"display"`
	Definition string `yaml:"definition" json:"definition"`
	RuleCount  int    `yaml:"-" json:"rule_count"`
}

type GlossaryCatalog struct {
	Terms map[string]GlossaryTerm `yaml:"terms" json:"terms"`
}

func LoadGlossary(path string) (GlossaryCatalog, error) {
	if path == "" {
		return DefaultGlossary(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultGlossary(), err
	}
	var cat GlossaryCatalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return GlossaryCatalog{}, err
	}
	if len(cat.Terms) == 0 {
		return GlossaryCatalog{}, fmt.Errorf("glossary catalog empty")
	}
	return cat, nil
}

func (c GlossaryCatalog) Lookup(key string) (GlossaryTerm, bool) {
	if c.Terms == nil {
		return GlossaryTerm{}, false
	}
	term, ok := c.Terms[strings.ToLower(key)]
	if ok {
		return term, true
	}
	for k, v := range c.Terms {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return GlossaryTerm{}, false
}

// BuildGlossary assembles the trial glossary from the categories that
// actually occur in the extracted rules, enriched from the catalog.
func (c GlossaryCatalog) BuildGlossary(rules []models.Rule) []GlossaryTerm {
	counts := make(map[string]int)
	for _, rule := range rules {
		if rule.Category != "" {
			counts[strings.ToLower(rule.Category)]++
		}
	}

	terms := make([]GlossaryTerm, 0, len(counts))
	for key, count := range counts {
		term, ok := c.Lookup(key)
		if !ok {
			term = GlossaryTerm{
				Term:    key,
				Display: displayName(key),
			}
		}
		term.Term = key
		term.RuleCount = count
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Term < terms[j].Term })
	return terms
}

// displayName renders a category key like "lab_threshold" as
// "Lab Threshold" for categories the catalog does not cover.
func displayName(key string) string {
	words := strings.Split(strings.ToLower(key), "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func DefaultGlossary() GlossaryCatalog {
	return GlossaryCatalog{Terms: map[string]GlossaryTerm{
		"lab_threshold": {
			Display:    "Laboratory Threshold",
			Definition: "A numeric bound on a laboratory value, such as HbA1c or eGFR, that a patient must satisfy.",
		},
		"demographic": {
			Display:    "Demographic",
			Definition: "Age, sex, or other population attributes restricting enrollment.",
		},
		"condition": {
			Display:    "Medical Condition",
			Definition: "A diagnosis or clinical history that qualifies or disqualifies a patient.",
		},
		"medication": {
			Display:    "Medication",
			Definition: "A current or prior drug exposure relevant to eligibility.",
		},
		"procedure": {
			Display:    "Procedure",
			Definition: "A medical procedure in the patient's history relevant to eligibility.",
		},
	}}
}
