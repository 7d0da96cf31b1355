package insights

import (
	"encoding/json"
	"strings"
)

// parseStrategy attempts one interpretation of the raw model output.
// Returns ok=false when the format does not apply; the chain moves on.
type parseStrategy func(raw string) (ThemeInsights, bool)

// strategies are tried in order; the first success wins.
var strategies = []parseStrategy{
	parseStructured,
	parseTagArray,
	parseDelimited,
}

// Parse turns arbitrary model output into normalized ThemeInsights. It never
// fails: unrecognized input degrades through the strategy chain down to an
// empty result.
func Parse(raw string) ThemeInsights {
	raw = stripCodeFence(raw)

	for _, try := range strategies {
		if out, ok := try(raw); ok {
			return out
		}
	}

	return ThemeInsights{}
}

// stripCodeFence removes a leading/trailing Markdown code fence, with or
// without a language hint, e.g. ```json ... ```.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")

	// Drop the language hint on the opening fence line.
	if idx := strings.Index(s, "\n"); idx != -1 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}[],:") {
			s = s[idx+1:]
		}
	}

	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}

// parseStructured deserializes the five-field object shape. Field names are
// matched case-insensitively by encoding/json; unknown fields are ignored.
func parseStructured(raw string) (ThemeInsights, bool) {
	var out ThemeInsights
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return ThemeInsights{}, false
	}

	out = out.Normalize()
	if out.IsEmpty() {
		return ThemeInsights{}, false
	}

	return out, true
}

// parseTagArray handles a bare JSON array of strings, or a JSON object that
// exposes a "tags" array. Extracted strings become the keyword set.
func parseTagArray(raw string) (ThemeInsights, bool) {
	var tags []string

	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		var wrapper struct {
			Tags []string `json:"tags"`
		}

		if err := json.Unmarshal([]byte(raw), &wrapper); err != nil || wrapper.Tags == nil {
			return ThemeInsights{}, false
		}

		tags = wrapper.Tags
	}

	out := ThemeInsights{Keywords: tags}.Normalize()
	if out.IsEmpty() {
		return ThemeInsights{}, false
	}

	return out, true
}

// parseDelimited is the last resort: split on commas, semicolons and
// newlines. Tokens are lowercased since free text from the model carries no
// reliable casing.
func parseDelimited(raw string) (ThemeInsights, bool) {
	// Valid JSON that made it this far carried no usable tags; splitting it
	// would turn syntax into keywords.
	if json.Valid([]byte(raw)) && (strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[")) {
		return ThemeInsights{}, false
	}

	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	var keywords []string

	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		keywords = append(keywords, strings.ToLower(tok))
	}

	if len(keywords) == 0 {
		return ThemeInsights{}, false
	}

	return ThemeInsights{Keywords: keywords}.Normalize(), true
}
