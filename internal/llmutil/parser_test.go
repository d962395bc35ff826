// internal/llmutil/parser_test.go
package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	Steps []struct {
		Action string `json:"action"`
	} `json:"steps"`
}

func TestParseJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bare object", `{"steps":[{"action":"click"}]}`},
		{"fenced", "```json\n{\"steps\":[{\"action\":\"click\"}]}\n```"},
		{"fenced without tag", "```\n{\"steps\":[{\"action\":\"click\"}]}\n```"},
		{"preamble", `Sure, here you go: {"steps":[{"action":"click"}]} Good luck.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONResponse[reply](tt.input)
			require.NoError(t, err)
			require.Len(t, got.Steps, 1)
			assert.Equal(t, "click", got.Steps[0].Action)
		})
	}
}

func TestParseJSONResponse_Invalid(t *testing.T) {
	_, err := ParseJSONResponse[reply]("I cannot help with that.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "I cannot help")
}
