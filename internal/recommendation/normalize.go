package recommendation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Status is the envelope status of a Recommendation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// SuccessMessage is the fixed message of every successful recommendation.
const SuccessMessage = "Recommendations generated successfully"

// Canonical output field names.
const (
	KeyEmotion   = "emotion"
	KeyProducts  = "products"
	KeyCombos    = "combos"
	KeyStatus    = "status"
	KeyMessage   = "message"
	KeyErrorCode = "error_code"
)

// synonyms lists, per canonical field, the folded upstream keys that map to
// it. Earlier entries win when a payload carries more than one.
var synonyms = map[string][]string{
	KeyEmotion:  {"emotion"},
	KeyProducts: {"top products", "products"},
	KeyCombos:   {"top combos", "combos"},
}

// envelope keys are always produced by assembly and never taken from upstream.
var envelope = map[string]bool{
	KeyStatus:    true,
	KeyMessage:   true,
	KeyErrorCode: true,
}

// Recommendation is the normalized answer returned to clients.
type Recommendation struct {
	Emotion   string
	Products  []string
	Combos    []string
	Status    Status
	Message   string
	ErrorCode string
	// Extras holds upstream keys that did not reconcile to a canonical field.
	Extras map[string]any
}

// MarshalJSON emits the canonical fields plus any extras. An extra can never
// shadow a canonical field.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extras)+6)
	for k, v := range r.Extras {
		if _, reserved := synonyms[k]; reserved || envelope[k] {
			continue
		}
		out[k] = v
	}

	out[KeyEmotion] = r.Emotion
	out[KeyProducts] = nonNil(r.Products)
	out[KeyCombos] = nonNil(r.Combos)
	out[KeyStatus] = r.Status
	out[KeyMessage] = r.Message
	if r.ErrorCode != "" {
		out[KeyErrorCode] = r.ErrorCode
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a previously marshaled Recommendation back, e.g. from a
// stored job result.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Normalize(raw)
	if s, ok := raw[KeyStatus].(string); ok && Status(s) == StatusError {
		r.Status = StatusError
		r.Message, _ = raw[KeyMessage].(string)
		r.ErrorCode, _ = raw[KeyErrorCode].(string)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// FoldKey lower-cases and trims a key, treats '_' and '-' as spaces and
// collapses runs of whitespace, so "Top_Products" and " top  products" match.
func FoldKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	return strings.Join(strings.Fields(key), " ")
}

// canonicalFor returns the canonical field a raw key reconciles to and the
// synonym's precedence rank.
func canonicalFor(key string) (field string, rank int, ok bool) {
	folded := FoldKey(key)
	for field, names := range synonyms {
		for i, name := range names {
			if name == folded {
				return field, i, true
			}
		}
	}
	return "", 0, false
}

// reconcile picks, for every canonical field, the raw key that supplies it.
func reconcile(raw map[string]any) map[string]string {
	type pick struct {
		key  string
		rank int
	}
	chosen := make(map[string]pick, len(synonyms))
	for key := range raw {
		field, rank, ok := canonicalFor(key)
		if !ok {
			continue
		}
		cur, seen := chosen[field]
		if !seen || rank < cur.rank || (rank == cur.rank && key < cur.key) {
			chosen[field] = pick{key: key, rank: rank}
		}
	}

	keys := make(map[string]string, len(chosen))
	for field, p := range chosen {
		keys[field] = p.key
	}
	return keys
}

// Recognized reports whether at least one key of raw reconciles to a
// canonical recommendation field.
func Recognized(raw map[string]any) bool {
	for key := range raw {
		if _, _, ok := canonicalFor(key); ok {
			return true
		}
	}
	return false
}

// Normalize turns an upstream payload into a successful Recommendation. It
// never fails: missing fields become empty values. Normalizing an already
// normalized payload returns the same result.
func Normalize(raw map[string]any) Recommendation {
	keys := reconcile(raw)

	rec := Recommendation{
		Status:   StatusSuccess,
		Message:  SuccessMessage,
		Products: []string{},
		Combos:   []string{},
	}
	if key, ok := keys[KeyEmotion]; ok {
		rec.Emotion = coerceEmotion(raw[key])
	}
	if key, ok := keys[KeyProducts]; ok {
		rec.Products = coerceList(raw[key])
	}
	if key, ok := keys[KeyCombos]; ok {
		rec.Combos = coerceList(raw[key])
	}

	for key, value := range raw {
		if _, _, ok := canonicalFor(key); ok {
			continue
		}
		if envelope[FoldKey(key)] || envelope[key] {
			continue
		}
		if rec.Extras == nil {
			rec.Extras = make(map[string]any)
		}
		rec.Extras[key] = value
	}
	return rec
}

// Failed builds the error envelope: blank emotion and empty lists.
func Failed(code, message string) Recommendation {
	return Recommendation{
		Status:    StatusError,
		Message:   message,
		ErrorCode: code,
		Products:  []string{},
		Combos:    []string{},
	}
}

func coerceEmotion(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []string:
		return joinWords(t)
	case []any:
		words := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			words = append(words, stringify(item))
		}
		return joinWords(words)
	default:
		return strings.TrimSpace(stringify(t))
	}
}

func joinWords(words []string) string {
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			kept = append(kept, w)
		}
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

func coerceList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, listItem(item))
		}
		return out
	default:
		return []string{}
	}
}

// listItem renders one products/combos element. A nested list of strings is
// a combo written as pairs and is joined with " + ".
func listItem(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if parts, ok := v.([]any); ok {
		names := make([]string, 0, len(parts))
		for _, p := range parts {
			s, ok := p.(string)
			if !ok {
				return stringify(v)
			}
			names = append(names, strings.TrimSpace(s))
		}
		return strings.Join(names, " + ")
	}
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

// SortedExtraKeys returns the extra keys in a stable order, for logging.
func (r Recommendation) SortedExtraKeys() []string {
	keys := make([]string, 0, len(r.Extras))
	for k := range r.Extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
