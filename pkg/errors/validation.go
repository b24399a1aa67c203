package errors

import (
	"strings"
	"unicode"
)

// MaxDescriptionLength bounds free-text chart requests.
const MaxDescriptionLength = 2000

// ValidateDescription validates a free-text chart request.
//
// Rules:
//   - Not empty (after trimming whitespace)
//   - Maximum of MaxDescriptionLength characters
//   - No control characters other than newline and tab
func ValidateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return New(ErrCodeInvalidInput, "description cannot be empty")
	}
	if len(desc) > MaxDescriptionLength {
		return New(ErrCodeInvalidInput, "description too long (max %d characters)", MaxDescriptionLength)
	}
	for _, r := range desc {
		if r == '\n' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "description contains invalid control characters")
		}
	}
	return nil
}

// ValidateArtifactID validates an artifact identifier received from a client.
// Identifiers name files under the documents root, so they must be a single
// path element.
func ValidateArtifactID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidPath, "artifact id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidPath, "artifact id too long (max 128 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "artifact id contains invalid characters")
		}
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return New(ErrCodeInvalidPath, "artifact id cannot contain path components")
	}
	if strings.HasPrefix(id, ".") {
		return New(ErrCodeInvalidPath, "artifact id cannot be a hidden file")
	}
	return nil
}

// ValidatePath validates a relative file path for safety.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateRows validates a requested record count. Zero selects the family
// default.
func ValidateRows(rows, limit int) error {
	if rows < 0 {
		return New(ErrCodeInvalidInput, "rows cannot be negative: %d", rows)
	}
	if limit > 0 && rows > limit {
		return New(ErrCodeInvalidInput, "rows too large: %d (max %d)", rows, limit)
	}
	return nil
}
