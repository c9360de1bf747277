// Package title composes a conversation's display title from its
// user-editable base title and an optional extracted case number.
//
// The display title is always derived: Compose(customTitle, caseNumber).
package title

import (
	"strings"
	"unicode"
)

const (
	// Default is the base title of a conversation nobody has named.
	Default = "محادثة بدون عنوان"

	// NotAvailable is the placeholder drafts use for unknown values. A case
	// number equal to it counts as absent.
	NotAvailable = "غير متوفر"

	separator = " - "
)

// Present reports whether caseNumber carries a real value.
func Present(caseNumber string) bool {
	c := strings.TrimSpace(caseNumber)
	return c != "" && c != NotAvailable
}

// Compose returns the display title for a base title and case number.
// Without a case number it is the base title (or Default when blank).
// A base title already starting with the case number is returned unchanged,
// which makes Compose idempotent.
func Compose(customTitle, caseNumber string) string {
	base := customTitle
	if strings.TrimSpace(base) == "" {
		base = Default
	}
	if !Present(caseNumber) {
		return base
	}
	c := strings.TrimSpace(caseNumber)
	if strings.HasPrefix(base, c) {
		return base
	}
	return c + separator + base
}

// Strip recovers the base title from a display title by removing a leading
// case number and the separator characters after it.
func Strip(displayTitle, caseNumber string) string {
	if displayTitle == "" {
		return Default
	}
	if !Present(caseNumber) {
		return displayTitle
	}
	c := strings.TrimSpace(caseNumber)
	if !strings.HasPrefix(displayTitle, c) {
		return displayTitle
	}
	rest := strings.TrimLeftFunc(displayTitle[len(c):], isSeparator)
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Default
	}
	return rest
}

func isSeparator(r rune) bool {
	return r == '-' || r == ':' || r == '|' || unicode.IsSpace(r)
}
