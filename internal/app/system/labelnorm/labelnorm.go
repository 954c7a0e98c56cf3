// Package labelnorm canonicalizes label strings. The normalized form is
// the ledger identity; the display form keeps the author's casing.
package labelnorm

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Display strips the leading '#' prefix and surrounding whitespace but
// preserves casing.
func Display(s string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), "#"))
}

// Normalize returns the canonical ledger identity for a label: trimmed,
// '#'-stripped, case-folded, and diacritics-stripped. Returns "" for
// labels that are empty after trimming; callers skip those.
func Normalize(s string) string {
	d := Display(s)
	if d == "" {
		return ""
	}
	return text.Fold(d)
}

// Set reduces a raw label list to a map of normalized name → display
// form. Duplicates collapse (first occurrence's display form wins) and
// empty labels are dropped, making the result an order-irrelevant set.
func Set(labels []string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	set := make(map[string]string, len(labels))
	for _, raw := range labels {
		norm := Normalize(raw)
		if norm == "" {
			continue
		}
		if _, ok := set[norm]; !ok {
			set[norm] = Display(raw)
		}
	}
	return set
}
