// Package naming turns platform display names into stable on-disk file names.
package naming

import (
	"path/filepath"
	"strings"
)

// UnknownAsset is the display name used when the name lookup fails. It is
// also the stem used when a name sanitizes to nothing.
const UnknownAsset = "Unknown_Asset"

// forbidden are the characters stripped from display names. Spaces are
// handled separately (replaced, not stripped).
const forbidden = `\/*?"<>|`

// Sanitize removes \ / * ? " < > | from name and replaces spaces with
// underscores. Total: any input, including "", yields a (possibly empty) stem.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case strings.ContainsRune(forbidden, r):
		case r == ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Path returns the output file path for a sanitized stem. Same stem always maps
// to the same path, so re-downloading an asset overwrites the earlier file.
func Path(dir, stem, ext string) string {
	return filepath.Join(dir, fileName(stem, ext))
}

// PartialPattern is the os.CreateTemp pattern for the file bytes are streamed
// into before the rename to Path. Each download gets its own partial file, so
// concurrent downloads of the same stem never share one.
func PartialPattern(stem, ext string) string {
	return fileName(stem, ext) + ".*.partial"
}

func fileName(stem, ext string) string {
	// The stem is already sanitized; this only guards direct callers and the
	// empty stem.
	stem = strings.ReplaceAll(stem, "/", "_")
	stem = strings.ReplaceAll(stem, "\\", "_")
	stem = strings.ReplaceAll(stem, "\x00", "_")
	if stem == "" || stem == "." || stem == ".." {
		stem = UnknownAsset
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}
