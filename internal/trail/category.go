package trail

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/gastroops/opsdeck/internal/model"
)

//go:embed rules.yaml
var rulesYAML []byte

type categoryRule struct {
	Category model.Category `yaml:"category"`
	Keywords []string       `yaml:"keywords"`
}

type categoryRules struct {
	Categories []categoryRule `yaml:"categories"`
}

var (
	rulesOnce   sync.Once
	loadedRules categoryRules
	rulesErr    error
)

func loadRules() ([]categoryRule, error) {
	rulesOnce.Do(func() {
		if err := yaml.Unmarshal(rulesYAML, &loadedRules); err != nil {
			rulesErr = eris.Wrap(err, "trail: parse category rules")
			return
		}
		for _, r := range loadedRules.Categories {
			if !r.Category.Valid() {
				rulesErr = eris.Errorf("trail: unknown category in rules: %s", r.Category)
				return
			}
		}
	})
	return loadedRules.Categories, rulesErr
}

// InferCategory guesses a template's category from its name and the raw
// category column text, falling back to the general category.
func InferCategory(name, categoryText string) model.Category {
	rules, err := loadRules()
	if err != nil {
		// Embedded rules are validated by tests; a broken file degrades to
		// the fallback category instead of failing the whole parse.
		return model.CategoryGeneral
	}

	haystacks := []string{strings.ToLower(categoryText), strings.ToLower(name)}
	for _, hay := range haystacks {
		if hay == "" {
			continue
		}
		for _, rule := range rules {
			for _, kw := range rule.Keywords {
				if strings.Contains(hay, kw) {
					return rule.Category
				}
			}
		}
	}
	return model.CategoryGeneral
}
