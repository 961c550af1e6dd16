package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxDisplayNameLength is the longest store display name accepted, in characters.
const MaxDisplayNameLength = 100

// maxSanitizedLength bounds the sanitized segment of a remote store name.
const maxSanitizedLength = 50

var (
	displayNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_ąćęłńóśźżĄĆĘŁŃÓŚŹŻ]+$`)
	nonNamePattern     = regexp.MustCompile(`[^a-z0-9_]+`)
	underscoreRuns     = regexp.MustCompile(`_+`)
)

var (
	ErrEmptyDisplayName   = errors.New("store name cannot be empty")
	ErrDisplayNameTooLong = fmt.Errorf("store name cannot be longer than %d characters", MaxDisplayNameLength)
	ErrDisplayNameCharset = errors.New("store name can only contain letters, numbers, spaces, hyphens, and underscores")
)

// ValidateDisplayName trims the name and checks it against the allowed
// character set and length. It returns the trimmed name.
func ValidateDisplayName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptyDisplayName
	}
	if utf8.RuneCountInString(trimmed) > MaxDisplayNameLength {
		return "", ErrDisplayNameTooLong
	}
	if !displayNamePattern.MatchString(trimmed) {
		return "", ErrDisplayNameCharset
	}
	return trimmed, nil
}

// SanitizeName lower-cases name, collapses every run of characters outside
// [a-z0-9_] into one underscore, trims edge underscores and truncates the
// result to 50 characters.
func SanitizeName(name string) string {
	s := nonNamePattern.ReplaceAllString(strings.ToLower(name), "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > maxSanitizedLength {
		s = s[:maxSanitizedLength]
	}
	return s
}

// RemoteStoreName derives a collision-resistant remote store name of the form
// store_<unix seconds>_<sanitized display name>.
func RemoteStoreName(displayName string, now time.Time) string {
	name := fmt.Sprintf("store_%d", now.Unix())
	if s := SanitizeName(displayName); s != "" {
		name += "_" + s
	}
	return name
}

// GenerateUUID returns a random version 4 UUID string.
func GenerateUUID() string {
	return uuid.NewString()
}
