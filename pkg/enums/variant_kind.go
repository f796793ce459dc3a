package enums

import "fmt"

// VariantKind identifies a derived rendition of an uploaded image.
type VariantKind string

const (
	VariantKindThumb VariantKind = "thumb"
	VariantKindLarge VariantKind = "large"
	VariantKindAVIF  VariantKind = "avif"
)

var validVariantKinds = []VariantKind{
	VariantKindThumb,
	VariantKindLarge,
	VariantKindAVIF,
}

// String returns the literal string for the kind.
func (v VariantKind) String() string {
	return string(v)
}

// IsValid reports whether the kind is known.
func (v VariantKind) IsValid() bool {
	for _, candidate := range validVariantKinds {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVariantKind converts raw input into a VariantKind.
func ParseVariantKind(value string) (VariantKind, error) {
	for _, candidate := range validVariantKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid variant kind %q", value)
}
