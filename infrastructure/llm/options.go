package llm

import (
	"fmt"
	"net/url"
)

// Request defaults and bounds shared by all providers.
const (
	DefaultMaxTokens = 1024

	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0
)

// RequestOptions is the provider-neutral form of a request's options map.
type RequestOptions struct {
	MaxTokens int
	Model     string

	// Temperature and TopP are nil when the provider default applies.
	Temperature *float64
	TopP        *float64

	// System is the system instruction, sent separately where the provider
	// supports it.
	System string

	// JSON asks for a JSON object response where the provider supports it.
	JSON bool
}

// ParseRequestOptions reads the recognized keys of opts. Values of the
// wrong type or out of range fall back to the defaults.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	o := RequestOptions{
		MaxTokens: ExtractOptionalInt(opts, "max_tokens", DefaultMaxTokens, IsPositiveInt),
		Model:     ExtractOptionalString(opts, "model", defaultModel, IsNonEmptyString),
		System:    ExtractOptionalString(opts, "system", "", nil),
		JSON:      ExtractOptionalString(opts, "response_format", "", nil) == "json",
	}
	if t := ExtractOptionalFloat64(opts, "temperature", -1, IsValidTemperature); t != -1 {
		o.Temperature = &t
	}
	if p := ExtractOptionalFloat64(opts, "top_p", -1, IsValidTopP); p != -1 {
		o.TopP = &p
	}
	return o
}

// ExtractOptionalInt returns opts[key] when it is an int accepted by valid.
func ExtractOptionalInt(opts map[string]any, key string, def int, valid func(int) bool) int {
	return extract(opts, key, def, valid)
}

// ExtractOptionalString returns opts[key] when it is a string accepted by valid.
func ExtractOptionalString(opts map[string]any, key string, def string, valid func(string) bool) string {
	return extract(opts, key, def, valid)
}

// ExtractOptionalFloat64 returns opts[key] when it is a float64 accepted by
// valid. Integers are widened.
func ExtractOptionalFloat64(opts map[string]any, key string, def float64, valid func(float64) bool) float64 {
	if i, ok := opts[key].(int); ok {
		opts = map[string]any{key: float64(i)}
	}
	return extract(opts, key, def, valid)
}

func extract[T any](opts map[string]any, key string, def T, valid func(T) bool) T {
	v, ok := opts[key].(T)
	if !ok || (valid != nil && !valid(v)) {
		return def
	}
	return v
}

// IsPositiveInt reports v > 0.
func IsPositiveInt(v int) bool { return v > 0 }

// IsNonEmptyString reports v != "".
func IsNonEmptyString(v string) bool { return v != "" }

// IsValidTemperature reports whether v is within the widest provider range.
func IsValidTemperature(v float64) bool { return v >= MinTemperature && v <= MaxTemperature }

// IsValidTopP reports whether v is a probability.
func IsValidTopP(v float64) bool { return v >= MinTopP && v <= MaxTopP }

// ValidateBaseURL requires an absolute http(s) URL. An empty string is
// returned unchanged.
func ValidateBaseURL(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return u.String(), nil
}

func clampFloat(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
