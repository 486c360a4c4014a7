package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/template-synth/pkg/types"
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseDetection parses a model reply into a Detection. Replies that are not
// usable JSON produce a fallback detection (Present false, Fallback true)
// instead of an error, so one bad reply does not stop an audit run.
func ParseDetection(raw string) *types.Detection {
	raw = SanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return fallback("model returned non-JSON response")
	}

	var result types.Detection
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return fallback("failed to parse model response")
	}

	result.Label = strings.TrimSpace(result.Label)
	result.Confidence = clamp(result.Confidence, 0, 1)
	result.Box = types.Box{
		X: clamp(result.Box.X, 0, 1),
		Y: clamp(result.Box.Y, 0, 1),
		W: clamp(result.Box.W, 0, 1),
		H: clamp(result.Box.H, 0, 1),
	}
	if strings.EqualFold(result.Label, "none") {
		result.Present = false
	}
	return &result
}

func fallback(reason string) *types.Detection {
	return &types.Detection{
		Label:       "none",
		Description: reason,
		Fallback:    true,
	}
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
