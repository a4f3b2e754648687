// Package features calls the hosted video feature-extraction app, a Gradio
// Space that turns a video into an emotion vector and contextual metadata.
package features

import (
	"encoding/json"

	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/recommendation"
)

// Result keys. The Space has shipped both spellings.
var (
	vectorKeys  = []string{"vad_score", "Final VAD Score"}
	contextKeys = []string{"contextual_data", "Contextual Information"}
)

// Features is what the extraction service derived from one video.
type Features struct {
	Vector       recommendation.EmotionVector
	Intents      recommendation.IntentList
	Context      recommendation.ContextualData
	AudioEmotion string
	VideoEmotion string
}

// Input builds the recommendation input for these features.
func (f *Features) Input() recommendation.Input {
	return recommendation.Input{Vector: f.Vector, Intents: f.Intents, Context: f.Context}
}

// Labels returns the emotion labels the service reported, if any.
func (f *Features) Labels() map[string]string {
	labels := make(map[string]string, 2)
	if f.AudioEmotion != "" {
		labels["audio_emotion"] = f.AudioEmotion
	}
	if f.VideoEmotion != "" {
		labels["video_emotion"] = f.VideoEmotion
	}
	return labels
}

// ParseResult validates one prediction result. Bad data here is the
// service's fault, so every violation is reported as a malformed upstream
// response rather than a client error.
func ParseResult(raw map[string]any) (*Features, error) {
	rawVector, ok := first(raw, vectorKeys)
	if !ok {
		return nil, errors.NewUpstreamMalformedError(
			"feature extraction result has no emotion vector", "MISSING_VAD_SCORE", nil)
	}
	vector, err := recommendation.ParseEmotionVector(rawVector)
	if err != nil {
		return nil, errors.NewUpstreamMalformedError(
			"feature extraction returned an invalid emotion vector", "INVALID_VAD_SCORE", err)
	}

	rawContext, _ := first(raw, contextKeys)
	if items, ok := rawContext.([]any); ok && len(items) == 0 {
		rawContext = nil
	}
	contextual, err := recommendation.ParseContextualData(rawContext)
	if err != nil {
		return nil, errors.NewUpstreamMalformedError(
			"feature extraction returned invalid contextual data", "INVALID_CONTEXTUAL_DATA", err)
	}

	f := &Features{Vector: vector, Context: contextual}
	if len(contextual.Intent) > 0 {
		f.Intents = append(recommendation.IntentList{}, contextual.Intent...)
	}
	f.AudioEmotion, _ = raw["audio_emotion"].(string)
	f.VideoEmotion, _ = raw["video_emotion"].(string)
	return f, nil
}

func first(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// resultFromData picks the result mapping out of a Gradio "complete" event.
// Outputs are usually a JSON component (an object) but some Spaces return
// the object serialized as a string.
func resultFromData(data []any) (map[string]any, bool) {
	for _, item := range data {
		switch v := item.(type) {
		case map[string]any:
			return v, true
		case string:
			var m map[string]any
			if json.Unmarshal([]byte(v), &m) == nil && m != nil {
				return m, true
			}
		}
	}
	return nil, false
}
