package llm

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/metrics"
)

var (
	fallbackMu     sync.Mutex
	fallbackCounts = map[string]int{}
)

// validator is implemented by payloads that can reject a decoded value.
type validator interface {
	Validate() error
}

// ParseOrDefault decodes a completion into T. When the call failed, the text
// is not valid JSON for T, or *T implements Validate and rejects it, it logs,
// counts a fallback for stage and returns def() with degraded=true.
func ParseOrDefault[T any](stage, text string, callErr error, def func() T) (val T, degraded bool) {
	err := callErr
	if err == nil {
		err = DecodeJSON(text, &val)
	}
	if err == nil {
		if v, ok := any(&val).(validator); ok {
			err = v.Validate()
		}
	}
	if err == nil {
		return val, false
	}

	zap.L().Warn("llm: using fallback",
		zap.String("stage", stage),
		zap.Error(err),
	)
	recordFallback(stage)
	return def(), true
}

// DecodeJSON extracts the JSON object from text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	cleaned := CleanJSON(text)
	if cleaned == "" {
		return eris.New("llm: no JSON object in completion")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return eris.Wrap(err, "llm: decode completion")
	}
	return nil
}

// CleanJSON strips markdown fences and surrounding prose, returning the span
// from the first '{' to the last '}'. It returns "" when there is no object.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	for _, fence := range []string{"```json", "```"} {
		if strings.HasPrefix(text, fence) {
			text = strings.TrimPrefix(text, fence)
			if idx := strings.LastIndex(text, "```"); idx >= 0 {
				text = text[:idx]
			}
			break
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

func recordFallback(stage string) {
	metrics.AIFallbacks.WithLabelValues(stage).Inc()
	fallbackMu.Lock()
	fallbackCounts[stage]++
	fallbackMu.Unlock()
}

// Fallbacks returns how many fallbacks stage has produced in this process.
func Fallbacks(stage string) int {
	fallbackMu.Lock()
	defer fallbackMu.Unlock()
	return fallbackCounts[stage]
}
