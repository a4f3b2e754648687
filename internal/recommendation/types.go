package recommendation

import (
	"encoding/json"
)

// EmotionVector is the (valence, arousal, dominance) triple. Each axis is
// nominally in [-1, 1] but the range is not enforced.
type EmotionVector [3]float64

func (v EmotionVector) Valence() float64   { return v[0] }
func (v EmotionVector) Arousal() float64   { return v[1] }
func (v EmotionVector) Dominance() float64 { return v[2] }

// InRange reports whether every axis lies inside [-1, 1].
func (v EmotionVector) InRange() bool {
	for _, x := range v {
		if x < -1 || x > 1 {
			return false
		}
	}
	return true
}

// IntentList is an ordered list of free-text preference tags ("Hot", "Light").
type IntentList []string

// ContextShape records which of the two accepted contextual layouts a caller used.
type ContextShape int

const (
	// ShapeMapping is {"time": ..., "date": ..., "location": ..., "weather": ..., "intent": ...}.
	ShapeMapping ContextShape = iota
	// ShapePositional is [time, date, location, weather].
	ShapePositional
)

func (s ContextShape) String() string {
	if s == ShapePositional {
		return "positional"
	}
	return "mapping"
}

// ContextualData is time/date/location/weather metadata. The shape is kept so
// the data is forwarded upstream exactly as the caller declared it.
type ContextualData struct {
	Shape    ContextShape
	Time     string
	Date     string
	Location string
	Weather  string
	// Intent is only available in the mapping shape.
	Intent []string
}

// MarshalJSON renders the data in its declared shape.
func (c ContextualData) MarshalJSON() ([]byte, error) {
	if c.Shape == ShapePositional {
		return json.Marshal([4]string{c.Time, c.Date, c.Location, c.Weather})
	}

	m := make(map[string]any, 5)
	for key, value := range map[string]string{
		contextKeyTime:     c.Time,
		contextKeyDate:     c.Date,
		contextKeyLocation: c.Location,
		contextKeyWeather:  c.Weather,
	} {
		if value != "" {
			m[key] = value
		}
	}
	if len(c.Intent) > 0 {
		m[contextKeyIntent] = c.Intent
	}
	return json.Marshal(m)
}

// Input is a validated recommendation request ready for the inference service.
type Input struct {
	Vector  EmotionVector
	Intents IntentList
	Context ContextualData
}

// UpstreamMessage serializes the input as the [vector, intents, context]
// triple the inference prompt expects.
func (in Input) UpstreamMessage() (string, error) {
	intents := in.Intents
	if intents == nil {
		intents = IntentList{}
	}
	data, err := json.Marshal([]any{in.Vector, intents, in.Context})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
