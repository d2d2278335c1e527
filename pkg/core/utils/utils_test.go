package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	Summary string `json:"summary"`
	Risk    string `json:"risk"`
}

func TestExtractFencedJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"json fence", "Here you go:\n```json\n{\"summary\":\"A\"}\n```\nThanks", `{"summary":"A"}`, true},
		{"bare fence", "```\n{\"risk\":\"B\"}\n```", `{"risk":"B"}`, true},
		{"other language", "```python\nprint(1)\n```", "", false},
		{"no fence", `{"summary":"A"}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFencedJSON(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSmartParse_Strict(t *testing.T) {
	var p pair
	_, err := SmartParse(`{"summary":"A","risk":"B"}`, &p)
	require.NoError(t, err)
	assert.Equal(t, pair{Summary: "A", Risk: "B"}, p)
}

func TestSmartParse_Fenced(t *testing.T) {
	var p pair
	_, err := SmartParse("```json\n{\"summary\":\"A\",\"risk\":\"B\"}\n```", &p)
	require.NoError(t, err)
	assert.Equal(t, "A", p.Summary)
	assert.Equal(t, "B", p.Risk)
}

func TestSmartParse_Repairs(t *testing.T) {
	var p pair
	_, err := SmartParse(`{'summary': 'A', "risk": "B",}`, &p)
	require.NoError(t, err)
	assert.Equal(t, "A", p.Summary)
	assert.Equal(t, "B", p.Risk)
}

func TestParseHJSON(t *testing.T) {
	out, err := ParseHJSON("{\n  # comment\n  summary: A\n}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"A"}`, out)
}
