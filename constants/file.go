package constants

import "strings"

// AllowedExtensions holds the file extensions accepted at the upload step.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// MaxUploadMBDefault caps an uploaded policy scan.
const MaxUploadMBDefault = 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt reports whether ext (with or without dot) can be uploaded.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
