package llm

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadflow/internal/metrics"
)

type scored struct {
	Score int    `json:"score"`
	Note  string `json:"note"`
}

type nonEmpty struct {
	Items []string `json:"items"`
}

func (n *nonEmpty) Validate() error {
	if len(n.Items) == 0 {
		return eris.New("no items")
	}
	return nil
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go: {\"a\":{\"b\":2}} hope that helps", `{"a":{"b":2}}`},
		{"no object", "sorry, I can't", ""},
		{"reversed braces", "} nope {", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

func TestParseOrDefault_Success(t *testing.T) {
	before := Fallbacks("parse_ok")
	got, degraded := ParseOrDefault("parse_ok", "```json\n{\"score\": 81, \"note\": \"hot\"}\n```", nil, func() scored {
		return scored{Score: 50}
	})
	assert.False(t, degraded)
	assert.Equal(t, scored{Score: 81, Note: "hot"}, got)
	assert.Equal(t, before, Fallbacks("parse_ok"))
}

func TestParseOrDefault_CallError(t *testing.T) {
	before := testutil.ToFloat64(metrics.AIFallbacks.WithLabelValues("parse_call_err"))
	got, degraded := ParseOrDefault("parse_call_err", "", errors.New("boom"), func() scored {
		return scored{Score: 50}
	})
	assert.True(t, degraded)
	assert.Equal(t, 50, got.Score)
	assert.Equal(t, 1, Fallbacks("parse_call_err"))
	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.AIFallbacks.WithLabelValues("parse_call_err")), 0.001)
}

func TestParseOrDefault_BadJSON(t *testing.T) {
	for _, text := range []string{"not json", `{"score": "eighty"}`, `{"score": 1`} {
		got, degraded := ParseOrDefault("parse_bad", text, nil, func() scored { return scored{Note: "fallback"} })
		assert.True(t, degraded, text)
		assert.Equal(t, "fallback", got.Note)
	}
	assert.Equal(t, 3, Fallbacks("parse_bad"))
}

func TestParseOrDefault_Validate(t *testing.T) {
	got, degraded := ParseOrDefault("parse_validate", `{"items": []}`, nil, func() nonEmpty {
		return nonEmpty{Items: []string{"default"}}
	})
	assert.True(t, degraded)
	assert.Equal(t, []string{"default"}, got.Items)

	got, degraded = ParseOrDefault("parse_validate", `{"items": ["a"]}`, nil, func() nonEmpty {
		return nonEmpty{}
	})
	assert.False(t, degraded)
	assert.Equal(t, []string{"a"}, got.Items)
}
