// Package allowlist maintains the set of file extensions eligible for
// scanning and unblocking.
package allowlist

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrInvalidExtension indicates an extension that is empty or lacks a leading dot.
	ErrInvalidExtension = errors.New("allowlist: invalid extension")
	// ErrEmptyAllowlist indicates that no extension is selected.
	ErrEmptyAllowlist = errors.New("allowlist: no extensions selected")
)

// OfficeFormats are the document formats toggled as a group. They are not part
// of the default allowlist because Office files can carry active content.
var OfficeFormats = []string{".docx", ".xlsx", ".pptx"}

var defaultExtensions = []string{
	".pdf", ".txt", ".md", ".csv", ".tsv", ".json", ".xml", ".log",
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff",
}

// Normalize lower-cases and trims raw and verifies it starts with a dot.
func Normalize(raw string) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(raw))
	if ext == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalidExtension)
	}
	if !strings.HasPrefix(ext, ".") || ext == "." {
		return "", fmt.Errorf("%w: %q must start with '.'", ErrInvalidExtension, raw)
	}
	if strings.ContainsAny(ext, `/\`) {
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidExtension, raw)
	}
	return ext, nil
}

// Set is a sorted, deduplicated collection of normalized extensions.
// The zero value is an empty set ready to use. Copies made by assignment are
// independent: mutations never write into a shared backing array.
type Set struct {
	items []string
}

// New builds a Set from raw extension strings, rejecting the first invalid one.
func New(raw ...string) (Set, error) {
	var s Set
	for _, r := range raw {
		ext, err := Normalize(r)
		if err != nil {
			return Set{}, err
		}
		s.insert(ext)
	}
	return s, nil
}

// Default returns the preview-friendly allowlist used when nothing has been configured.
func Default() Set {
	s, _ := New(defaultExtensions...)
	return s
}

// Parse splits a comma separated list such as ".pdf, .txt" into a Set.
func Parse(csv string) (Set, error) {
	var raw []string
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		raw = append(raw, part)
	}
	return New(raw...)
}

func (s *Set) insert(ext string) bool {
	idx, found := slices.BinarySearch(s.items, ext)
	if found {
		return false
	}
	// Clip forces a fresh array so copies of s never observe the insert.
	s.items = slices.Insert(slices.Clip(s.items), idx, ext)
	return true
}

// Add normalizes raw and inserts it. It reports whether the set changed.
func (s *Set) Add(raw string) (bool, error) {
	ext, err := Normalize(raw)
	if err != nil {
		return false, err
	}
	return s.insert(ext), nil
}

// Remove deletes the extension matching raw case-insensitively.
func (s *Set) Remove(raw string) bool {
	ext := strings.ToLower(strings.TrimSpace(raw))
	idx, found := slices.BinarySearch(s.items, ext)
	if !found {
		return false
	}
	s.items = append(slices.Clip(s.items[:idx]), s.items[idx+1:]...)
	return true
}

// Contains reports membership, ignoring case and surrounding whitespace.
func (s Set) Contains(ext string) bool {
	_, found := slices.BinarySearch(s.items, strings.ToLower(strings.TrimSpace(ext)))
	return found
}

// Len returns the number of extensions.
func (s Set) Len() int { return len(s.items) }

// Slice returns a sorted copy of the extensions.
func (s Set) Slice() []string { return slices.Clone(s.items) }

// Clone returns an independent copy, used to snapshot the allowlist before an operation.
func (s Set) Clone() Set { return Set{items: slices.Clone(s.items)} }

// Equal reports whether both sets hold the same extensions.
func (s Set) Equal(other Set) bool { return slices.Equal(s.items, other.items) }

func (s Set) String() string { return strings.Join(s.items, ",") }

// ToggleOfficeFormats returns a copy of current with the Office formats added
// (enabled) or removed (disabled). Other entries are left untouched.
func ToggleOfficeFormats(enabled bool, current Set) Set {
	next := current.Clone()
	for _, ext := range OfficeFormats {
		if enabled {
			next.insert(ext)
		} else {
			next.Remove(ext)
		}
	}
	return next
}

// HasOfficeFormats reports whether every Office format is present.
func HasOfficeFormats(s Set) bool {
	for _, ext := range OfficeFormats {
		if !s.Contains(ext) {
			return false
		}
	}
	return true
}

// EffectiveSet returns a snapshot of checked, or ErrEmptyAllowlist when it is empty.
func EffectiveSet(checked Set) (Set, error) {
	if checked.Len() == 0 {
		return Set{}, ErrEmptyAllowlist
	}
	return checked.Clone(), nil
}
