package recommendation

import (
	"testing"

	"github.com/socialchef/moodbite/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantKey string
		wantErr bool
	}{
		{name: "plain object", content: `{"emotion": "Calm"}`, wantKey: "emotion"},
		{name: "code fence", content: "```json\n{\"Top Products\": [\"Milk\"]}\n```", wantKey: "Top Products"},
		{name: "leading prose", content: `Here you go: {"combos": []} enjoy`, wantKey: "combos"},
		{name: "empty", content: "   ", wantErr: true},
		{name: "array", content: `["Milk"]`, wantErr: true},
		{name: "null", content: `null`, wantErr: true},
		{name: "truncated", content: `{"emotion": "Cal`, wantErr: true},
		{name: "prose only", content: `I cannot help with that.`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePayload(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeUpstreamMalformed))
				return
			}
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantKey)
		})
	}
}
