package biblioteca

import (
	"mime"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// bookExtensions is the allow-list for uploaded book files.
var bookExtensions = map[string]bool{
	".pdf":  true,
	".epub": true,
	".mobi": true,
	".txt":  true,
	".doc":  true,
	".docx": true,
}

// coverExtensions is the allow-list for uploaded cover images.
var coverExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// FileExt returns the lowercased extension of a filename, including the dot.
func FileExt(filename string) string {
	return strings.ToLower(path.Ext(filename))
}

// IsAllowedBookFormat reports whether the filename has a book extension
// from the allow-list (pdf, epub, mobi, txt, doc, docx).
func IsAllowedBookFormat(filename string) bool {
	return bookExtensions[FileExt(filename)]
}

// IsAllowedCoverFormat reports whether the filename has an image extension
// from the allow-list (jpg, jpeg, png, gif).
func IsAllowedCoverFormat(filename string) bool {
	return coverExtensions[FileExt(filename)]
}

// IsPDF reports whether a filename or storage key refers to a PDF.
func IsPDF(name string) bool {
	return FileExt(name) == ".pdf"
}

// NewStorageKey derives a collision-free storage key from an original
// filename: a random v4 UUID concatenated with the sanitized extension.
// The extension is preserved so backends can infer the content type.
// Uniqueness is probabilistic; the token space makes collisions negligible.
func NewStorageKey(originalFilename string) string {
	return uuid.NewString() + sanitizeExt(FileExt(originalFilename))
}

// sanitizeExt keeps only characters safe to use in a path segment or
// object identifier. Anything else, including separators, is dropped.
func sanitizeExt(ext string) string {
	var b strings.Builder
	for _, r := range ext {
		if r == '.' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" || s == "." || !strings.HasPrefix(s, ".") {
		return ""
	}
	return s
}

// DeriveTitle returns the fallback title for a book: the base name of the
// uploaded file with the extension stripped. Returns "" when nothing
// usable remains.
func DeriveTitle(originalFilename string) string {
	base := path.Base(originalFilename)
	title := strings.TrimSuffix(base, path.Ext(base))
	return strings.TrimSpace(title)
}

// IsValidKey validates that a string is usable as a storage key: a single
// path segment with no traversal sequences. Keys are system-generated, but
// this is checked anyway wherever a key crosses the request boundary.
//
// It rejects keys that:
//   - are empty, ".", or ".."
//   - contain "/" or "\" (path separators)
//   - contain ".." anywhere
//   - contain null bytes, control characters, DEL, or whitespace
//   - are not valid UTF-8
func IsValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}

	if strings.ContainsAny(key, `/\`) {
		return false
	}

	if strings.Contains(key, "..") {
		return false
	}

	if !utf8.ValidString(key) {
		return false
	}

	for _, r := range key {
		if r == 0 || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// ContentTypeForKey determines the MIME type from a storage key's extension.
func ContentTypeForKey(key string) string {
	contentType := mime.TypeByExtension(FileExt(key))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
