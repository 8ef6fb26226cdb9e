package finder

import (
	"fmt"

	"cheesefinder/internal/rx"
)

// Variant selects how queries reach the search engine.
type Variant string

const (
	// VariantMerged searches on button presses and on settled typing.
	VariantMerged Variant = "merged"
	// VariantButton searches on button presses only.
	VariantButton Variant = "button"
	// VariantTextChange searches on settled typing only.
	VariantTextChange Variant = "textchange"
	// VariantBlocking searches on button presses directly on the UI
	// context. The UI is unresponsive for the whole search.
	VariantBlocking Variant = "blocking"
)

// Variants lists every variant, default first.
var Variants = []Variant{VariantMerged, VariantButton, VariantTextChange, VariantBlocking}

// ParseVariant maps a name to a Variant. Empty selects VariantMerged.
func ParseVariant(name string) (Variant, error) {
	if name == "" {
		return VariantMerged, nil
	}
	for _, v := range Variants {
		if string(v) == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

func (v Variant) String() string { return string(v) }

// Blocking reports whether the variant runs the search on the UI context.
func (v Variant) Blocking() bool { return v == VariantBlocking }

// Inputs reports whether button presses and typing start a search.
func (v Variant) Inputs() (button, typing bool) {
	switch v {
	case VariantButton, VariantBlocking:
		return true, false
	case VariantTextChange:
		return false, true
	default:
		return true, true
	}
}

// queries picks the stream this variant listens to.
func (v Variant) queries(src Sources) rx.Observable[string] {
	switch v {
	case VariantButton, VariantBlocking:
		return src.Clicks
	case VariantTextChange:
		return src.Text
	default:
		return rx.Merge(src.Clicks, src.Text)
	}
}
