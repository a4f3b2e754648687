package recommendation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/socialchef/moodbite/internal/errors"
)

const (
	contextKeyTime     = "time"
	contextKeyDate     = "date"
	contextKeyLocation = "location"
	contextKeyWeather  = "weather"
	contextKeyIntent   = "intent"
)

// Request field names. The aliases are the names older clients sent.
const (
	FieldEmotionVector  = "emotion_vector"
	FieldIntentList     = "intent_list"
	FieldContextualData = "contextual_data"

	aliasEmotionVector = "vad_score"
	aliasIntentList    = "intent_selections"
)

// DecodeInput validates a decoded JSON request body and builds an Input.
// Any violation is returned as a client input error before anything is sent upstream.
func DecodeInput(fields map[string]any) (Input, error) {
	rawVector, ok := lookup(fields, FieldEmotionVector, aliasEmotionVector)
	if !ok {
		return Input{}, errors.NewClientInputError(
			"emotion_vector is required",
			"MISSING_EMOTION_VECTOR",
			"Send emotion_vector as [valence, arousal, dominance].",
		)
	}
	vector, err := ParseEmotionVector(rawVector)
	if err != nil {
		return Input{}, err
	}

	var intents IntentList
	if rawIntents, ok := lookup(fields, FieldIntentList, aliasIntentList); ok {
		intents, err = ParseIntentList(rawIntents)
		if err != nil {
			return Input{}, err
		}
	}

	rawContext, _ := lookup(fields, FieldContextualData)
	context, err := ParseContextualData(rawContext)
	if err != nil {
		return Input{}, err
	}

	if intents == nil && len(context.Intent) > 0 {
		intents = append(IntentList{}, context.Intent...)
	}

	return Input{Vector: vector, Intents: intents, Context: context}, nil
}

func lookup(fields map[string]any, names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := fields[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ParseEmotionVector accepts exactly three JSON numbers.
func ParseEmotionVector(v any) (EmotionVector, error) {
	invalid := func(detail string) error {
		return errors.NewClientInputError(
			"emotion_vector must be a list of 3 numbers [valence, arousal, dominance]: "+detail,
			"INVALID_EMOTION_VECTOR",
			"Send exactly three numeric values.",
		)
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []float64:
		items = make([]any, len(t))
		for i, f := range t {
			items[i] = f
		}
	default:
		return EmotionVector{}, invalid(fmt.Sprintf("got %T", v))
	}

	if len(items) != len(EmotionVector{}) {
		return EmotionVector{}, invalid(fmt.Sprintf("got %d elements", len(items)))
	}

	var vec EmotionVector
	for i, item := range items {
		switch n := item.(type) {
		case float64:
			vec[i] = n
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return EmotionVector{}, invalid(fmt.Sprintf("element %d is not a number", i))
			}
			vec[i] = f
		default:
			return EmotionVector{}, invalid(fmt.Sprintf("element %d is %T", i, item))
		}
	}
	return vec, nil
}

// ParseIntentList accepts null or a list of strings.
func ParseIntentList(v any) (IntentList, error) {
	invalid := errors.NewClientInputError(
		"intent_list must be a list of strings",
		"INVALID_INTENT_LIST",
		`Send intents like ["Hot", "Light", "Tangy"].`,
	)

	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append(IntentList{}, t...), nil
	case []any:
		out := make(IntentList, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, invalid
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, invalid
	}
}

// ParseContextualData accepts either a mapping with the known keys or a
// positional [time, date, location, weather] list. Absent data is an empty mapping.
func ParseContextualData(v any) (ContextualData, error) {
	switch t := v.(type) {
	case nil:
		return ContextualData{Shape: ShapeMapping}, nil
	case map[string]any:
		return parseContextMapping(t)
	case []any:
		return parseContextPositional(t)
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return parseContextPositional(items)
	default:
		return ContextualData{}, invalidContext(fmt.Sprintf("got %T", v))
	}
}

func invalidContext(detail string) error {
	return errors.NewClientInputError(
		"contextual_data must be an object {time, date, location, weather, intent} or a list [time, date, location, weather]: "+detail,
		"INVALID_CONTEXTUAL_DATA",
		"Pick one of the two shapes and send string values.",
	)
}

func parseContextMapping(m map[string]any) (ContextualData, error) {
	ctx := ContextualData{Shape: ShapeMapping}
	for key, value := range m {
		name := strings.ToLower(strings.TrimSpace(key))
		if name == contextKeyIntent {
			intents, err := parseContextIntent(value)
			if err != nil {
				return ContextualData{}, err
			}
			ctx.Intent = intents
			continue
		}

		var target *string
		switch name {
		case contextKeyTime:
			target = &ctx.Time
		case contextKeyDate:
			target = &ctx.Date
		case contextKeyLocation:
			target = &ctx.Location
		case contextKeyWeather:
			target = &ctx.Weather
		default:
			return ContextualData{}, invalidContext(fmt.Sprintf("unknown key %q", key))
		}

		switch s := value.(type) {
		case nil:
		case string:
			*target = s
		default:
			return ContextualData{}, invalidContext(fmt.Sprintf("%q must be a string", key))
		}
	}
	return ctx, nil
}

func parseContextIntent(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return []string{s}, nil
	}
	intents, err := ParseIntentList(v)
	if err != nil {
		return nil, invalidContext(`"intent" must be a string or a list of strings`)
	}
	return intents, nil
}

func parseContextPositional(items []any) (ContextualData, error) {
	if len(items) != 4 {
		return ContextualData{}, invalidContext(fmt.Sprintf("positional form needs 4 elements, got %d", len(items)))
	}
	values := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return ContextualData{}, invalidContext(fmt.Sprintf("element %d must be a string", i))
		}
		values[i] = s
	}
	return ContextualData{
		Shape:    ShapePositional,
		Time:     values[0],
		Date:     values[1],
		Location: values[2],
		Weather:  values[3],
	}, nil
}
