// Package insights holds the ThemeInsights value type and the parser that
// turns raw model output into a normalized, deduplicated tag structure.
package insights

import (
	"sort"
	"strings"
)

// ThemeInsights groups the visual signals extracted from a submission's
// images into five disjoint tag sets. Every member is non-empty after
// trimming and each set is deduplicated case-insensitively.
type ThemeInsights struct {
	Subjects        []string `json:"subjects"`
	Vibes           []string `json:"vibes"`
	NotableElements []string `json:"notable_elements"`
	Colors          []string `json:"colors"`
	Keywords        []string `json:"keywords"`
}

// IsEmpty reports whether all five sets are empty.
func (t ThemeInsights) IsEmpty() bool {
	return len(t.Subjects) == 0 &&
		len(t.Vibes) == 0 &&
		len(t.NotableElements) == 0 &&
		len(t.Colors) == 0 &&
		len(t.Keywords) == 0
}

// Normalize returns a copy with every set trimmed, empties dropped, and
// duplicates removed case-insensitively keeping the first-seen casing.
func (t ThemeInsights) Normalize() ThemeInsights {
	return ThemeInsights{
		Subjects:        normalizeSet(t.Subjects),
		Vibes:           normalizeSet(t.Vibes),
		NotableElements: normalizeSet(t.NotableElements),
		Colors:          normalizeSet(t.Colors),
		Keywords:        normalizeSet(t.Keywords),
	}
}

// Combine merges many insights into one by per-set union, independently
// normalized. Used when a submission has several separately analyzed images.
func Combine(many ...ThemeInsights) ThemeInsights {
	var out ThemeInsights

	for _, in := range many {
		out.Subjects = append(out.Subjects, in.Subjects...)
		out.Vibes = append(out.Vibes, in.Vibes...)
		out.NotableElements = append(out.NotableElements, in.NotableElements...)
		out.Colors = append(out.Colors, in.Colors...)
		out.Keywords = append(out.Keywords, in.Keywords...)
	}

	return out.Normalize()
}

// Flatten returns the union of all five sets, trimmed and deduplicated
// case-insensitively, sorted for stable display. This is the representation
// used for tag matching.
func (t ThemeInsights) Flatten() []string {
	all := make([]string, 0, len(t.Subjects)+len(t.Vibes)+len(t.NotableElements)+len(t.Colors)+len(t.Keywords))
	all = append(all, t.Subjects...)
	all = append(all, t.Vibes...)
	all = append(all, t.NotableElements...)
	all = append(all, t.Colors...)
	all = append(all, t.Keywords...)

	flat := normalizeSet(all)

	sort.Slice(flat, func(i, j int) bool {
		return strings.ToLower(flat[i]) < strings.ToLower(flat[j])
	})

	return flat
}

// normalizeSet trims members, drops empties, and deduplicates
// case-insensitively preserving first-seen casing.
func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(in))

	var out []string

	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}

		out = append(out, s)
	}

	return out
}
