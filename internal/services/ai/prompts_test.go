package ai

import (
	"strings"
	"testing"

	"github.com/socialchef/moodbite/internal/catalog"
	"github.com/socialchef/moodbite/internal/recommendation"
)

func TestBuildRecommendationPrompt(t *testing.T) {
	c, err := catalog.LoadEmbedded()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	tests := []struct {
		name     string
		shape    recommendation.ContextShape
		contains []string
	}{
		{
			name:  "Mapping context",
			shape: recommendation.ShapeMapping,
			contains: []string{
				"<ROLE>",
				"<INPUT>",
				"<SELECTION_RULES>",
				"<CATALOG_RULES>",
				"<PRODUCT_DICTIONARY>",
				"<OUTPUT_FORMAT>",
				`"top products"`,
				`"top combos"`,
				"-1 to +1",
				"Sent as an object",
				`"Taaza Jeera Chaach"`,
				`"combo_only": true`,
				"Cream & Onion - Potato Chips",
			},
		},
		{
			name:     "Positional context",
			shape:    recommendation.ShapePositional,
			contains: []string{"Sent as a list [time, date, location, weather]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := BuildRecommendationPrompt(c, tt.shape)
			if err != nil {
				t.Fatalf("BuildRecommendationPrompt() error = %v", err)
			}

			for _, s := range tt.contains {
				if !strings.Contains(prompt, s) {
					t.Errorf("BuildRecommendationPrompt() did not contain expected string: %s", s)
				}
			}
			if strings.Contains(prompt, "%!") {
				t.Error("BuildRecommendationPrompt() contains a formatting error")
			}
		})
	}
}

func TestBuildRecommendationPromptListsEveryProduct(t *testing.T) {
	c, err := catalog.New([]catalog.Product{
		{Name: "Lassi", Variants: []string{"Mango Lassi"}},
		{Name: "Sprouts"},
	})
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}

	prompt, err := BuildRecommendationPrompt(c, recommendation.ShapeMapping)
	if err != nil {
		t.Fatalf("BuildRecommendationPrompt() error = %v", err)
	}
	for _, name := range c.Names() {
		if !strings.Contains(prompt, `"`+name+`"`) {
			t.Errorf("prompt is missing product %s", name)
		}
	}
}

func TestContextNote(t *testing.T) {
	if contextNote(recommendation.ShapePositional) != positionalContextNote {
		t.Error("positional shape should use the positional note")
	}
	if contextNote(recommendation.ShapeMapping) != mappingContextNote {
		t.Error("mapping shape should use the mapping note")
	}
}
