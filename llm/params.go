package llm

import (
	"fmt"
	"strings"
)

// thinkingRange is the valid reasoning-budget interval for a model family.
type thinkingRange struct {
	prefix string
	min    int
	max    int
}

// Budget ranges are model-family specific; the newest entries win by being
// listed first so "pro" is matched before the bare family prefix.
var thinkingRanges = []thinkingRange{
	{prefix: "gemini-2.5-pro", min: 128, max: 32768},
	{prefix: "gemini-2.5-flash-lite", min: 512, max: 24576},
	{prefix: "gemini-2.5-flash", min: 0, max: 24576},
	{prefix: "gemini", min: 0, max: 32768},
}

// ValidateParams checks generation parameters against the target model
// before any network activity, so an out-of-range value fails fast with a
// descriptive error instead of a cryptic API rejection.
func ValidateParams(model string, params Params) error {
	if params.MaxOutputTokens < 0 {
		return NewFatalError(fmt.Errorf("max output tokens must be >= 0, got %d", params.MaxOutputTokens))
	}
	if params.Temperature != nil {
		if *params.Temperature < 0 || *params.Temperature > 2 {
			return NewFatalError(fmt.Errorf("temperature must be in [0, 2], got %g", *params.Temperature))
		}
	}
	if params.ThinkingBudget != nil {
		min, max, ok := thinkingBudgetRange(model)
		if !ok {
			return NewFatalError(fmt.Errorf("model %q does not support a thinking budget", model))
		}
		if *params.ThinkingBudget < min || *params.ThinkingBudget > max {
			return NewFatalError(fmt.Errorf(
				"thinking budget %d out of range [%d, %d] for model %q",
				*params.ThinkingBudget, min, max, model))
		}
	}
	return nil
}

// thinkingBudgetRange returns the valid budget interval for a model.
func thinkingBudgetRange(model string) (min, max int, ok bool) {
	for _, r := range thinkingRanges {
		if strings.HasPrefix(model, r.prefix) {
			return r.min, r.max, true
		}
	}
	return 0, 0, false
}
