package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/socialchef/moodbite/internal/catalog"
	"github.com/socialchef/moodbite/internal/recommendation"
)

const roleSection = `<ROLE>
You are a food recommendation assistant for an Indian snack and dairy store. You read a shopper's emotional state, stated preferences and situation, and pick the products from the store catalog that best suit them right now.
</ROLE>`

const inputSection = `<INPUT>
The user message is a JSON array [VAD, Intent, Context]:

1. VAD: [valence, arousal, dominance]
   - Every value is on a -1 to +1 scale, never 0 to 1. Three positive values do not mean a 0 to 1 scale.
   - Valence: pleasantness, -1 very unpleasant to +1 very pleasant
   - Arousal: energy, -1 very calm to +1 very energized
   - Dominance: sense of control, -1 helpless to +1 in control

2. Intent: list of preference tags such as ["Hot", "Light", "Tangy"]
   - The list may hold fewer than three tags. Use only the tags present.
   - An empty list means no stated preference.

3. Context: time, date, location and weather
   %s
</INPUT>`

const mappingContextNote = `- Sent as an object {"time", "date", "location", "weather"}. Any key may be missing.`

const positionalContextNote = `- Sent as a list [time, date, location, weather].`

const selectionSection = `<SELECTION_RULES>
- Decide WHICH products fit from VAD and Intent only.
  * Low valence: comfort food, sweets and mood lifters
  * High arousal: cooling, light or hydrating options; low arousal: warm, energizing options
  * Low dominance: familiar, soothing staples
- Use Context only to ORDER the shortlisted products, never to add or remove one.
  * Time of day: breakfast items in the morning, tea-time snacks in the evening
  * Date: check for Indian festivals on the date or within three days before or after and favour festive sweets
  * Weather: cooling products first on hot or sunny days, warm ones first when cold or rainy
- Context is like oregano on a pizza: it improves the result but does not change what is in it.
</SELECTION_RULES>`

const catalogRulesSection = `<CATALOG_RULES>
- Recommend only products from the dictionary below.
- When a product has variants, output the variant name and never the product name. Pick one variant per product.
- Products marked combo_only are never recommended alone; they only appear inside combos with one of their pairs_with products.
- Chips and puffs may be recommended as a bundle counted as one product.
- Combos join two or more products with " + ", for example "Multigrain Bread + Strawberry Jam".
- If no combo follows naturally from the input, choose any three sensible combos.
</CATALOG_RULES>`

const dictionaryOpen = `<PRODUCT_DICTIONARY>`
const dictionaryClose = `</PRODUCT_DICTIONARY>`

const outputFormatSection = `<OUTPUT_FORMAT>
Respond with a single JSON object and nothing else:
{
  "emotion": "one or two words naming the inferred emotion",
  "top products": ["first", "second", "third"],
  "top combos": ["first combo", "second combo", "third combo"]
}
Exactly three products and three combos, best first.
</OUTPUT_FORMAT>`

func contextNote(shape recommendation.ContextShape) string {
	if shape == recommendation.ShapePositional {
		return positionalContextNote
	}
	return mappingContextNote
}

// BuildRecommendationPrompt assembles the system prompt for the inference
// provider, embedding the catalog as a JSON dictionary.
func BuildRecommendationPrompt(c *catalog.Catalog, shape recommendation.ContextShape) (string, error) {
	var dict bytes.Buffer
	enc := json.NewEncoder(&dict)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.Dictionary()); err != nil {
		return "", fmt.Errorf("failed to render product dictionary: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(roleSection)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(inputSection, contextNote(shape)))
	sb.WriteString("\n\n")
	sb.WriteString(selectionSection)
	sb.WriteString("\n\n")
	sb.WriteString(catalogRulesSection)
	sb.WriteString("\n\n")
	sb.WriteString(dictionaryOpen)
	sb.WriteString("\n")
	sb.Write(dict.Bytes())
	sb.WriteString(dictionaryClose)
	sb.WriteString("\n\n")
	sb.WriteString(outputFormatSection)

	return sb.String(), nil
}
