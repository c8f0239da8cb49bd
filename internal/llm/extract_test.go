package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"raw", `{"answer":"x"}`, `{"answer":"x"}`, false},
		{"fenced", "```json\n{\"answer\":\"x\"}\n```", `{"answer":"x"}`, false},
		{"preface", `sure! {"answer":"x"} thanks`, `{"answer":"x"}`, false},
		{"first to last", `{"a":1} and {"b":2}`, `{"a":1} and {"b":2}`, false},
		{"empty", "   ", "", true},
		{"no json", "hello", "", true},
		{"reversed", "} oops {", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	got, err := ExtractJSONArray("Here you go:\n[{\"start_time\":0}]\nDone.")
	assert.NoError(t, err)
	assert.Equal(t, `[{"start_time":0}]`, got)

	_, err = ExtractJSONArray(`{"start_time":0}`)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestRedactSecrets(t *testing.T) {
	apiKey := "bce-v3/ALTAK-secret"
	in := `status 401; Authorization: Bearer bce-v3/ALTAK-secret; api_key=bce-v3/ALTAK-secret`
	got := redactSecrets(in, apiKey)

	assert.NotContains(t, got, apiKey)
	assert.Contains(t, got, "Authorization: [REDACTED]")
	assert.Contains(t, got, "api_key=[REDACTED]")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 4))
}
