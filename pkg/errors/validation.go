package errors

import (
	"strings"
	"unicode"
)

// ValidateUnitName validates a deployable unit name for safety.
// Unit names become archive file names and staging directory names, so they
// must be a single path segment.
func ValidateUnitName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "unit name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "unit name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "unit name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "unit name cannot contain path separators: %q", name)
	}

	if name == "." || name == ".." {
		return New(ErrCodeInvalidInput, "unit name cannot be %q", name)
	}

	return nil
}

// ValidatePath validates a registry path relative to the shared root.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal segments (..)
//   - No backslashes (Windows-style paths)
//   - No empty, "." or trailing segments ("a//b", "a/./b", "a/")
//
// The shared-root module "." is the single accepted dot path.
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

	if path == "." {
		return nil
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /): %s", path)
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes: %s", path)
	}

	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "..":
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..): %s", path)
		case "", ".":
			return New(ErrCodeInvalidPath, "path is not clean: %s", path)
		}
	}

	return nil
}
