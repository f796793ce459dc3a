package media

import (
	"path"
	"strings"

	"github.com/4245877/liteforest-backend/pkg/enums"
)

const (
	uploadsPrefix = "uploads/"
	mediaPrefix   = "media/"
)

// DeriveVariantKey computes the storage key for one variant of a source
// object. The derivation is a pure function of the source key and kind:
// a leading "uploads/" becomes "media/", the extension is stripped, and a
// dimension-format suffix is appended. Redelivered jobs recompute the same
// keys and overwrite in place.
//
//	uploads/products/rose.png -> media/products/rose-240.webp (thumb)
//	                          -> media/products/rose-800.webp (large)
//	                          -> media/products/rose-800.avif (avif)
func DeriveVariantKey(srcKey string, kind enums.VariantKind) string {
	base := srcKey
	if strings.HasPrefix(base, uploadsPrefix) {
		base = mediaPrefix + strings.TrimPrefix(base, uploadsPrefix)
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}

	switch kind {
	case enums.VariantKindThumb:
		return base + "-240.webp"
	case enums.VariantKindLarge:
		return base + "-800.webp"
	case enums.VariantKindAVIF:
		return base + "-800.avif"
	default:
		return base
	}
}
