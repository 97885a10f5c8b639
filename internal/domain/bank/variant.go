package bank

import (
	"fmt"
	"strings"
)

// Variant identifies one of the supported bank integrations. The set is
// closed: every switch over Variant in this module handles exactly these
// three values.
type Variant uint8

const (
	VariantA Variant = iota + 1
	VariantB
	VariantC
)

var variantTags = map[Variant]string{
	VariantA: "bank_a",
	VariantB: "bank_b",
	VariantC: "bank_c",
}

// Variants returns every supported variant in a stable order.
func Variants() []Variant {
	return []Variant{VariantA, VariantB, VariantC}
}

// ParseVariant resolves a stored or submitted tag into a Variant.
func ParseVariant(tag string) (Variant, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for v, t := range variantTags {
		if t == tag {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, tag)
}

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	_, ok := variantTags[v]
	return ok
}

func (v Variant) String() string {
	if t, ok := variantTags[v]; ok {
		return t
	}
	return fmt.Sprintf("variant(%d)", uint8(v))
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, uint8(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
