package email

import (
	"strings"
	"unicode"
)

// DeriveNameFromEmail splits the local part of an address into a first and
// last name. Directory seeding uses this when an identity is provisioned
// from an email alone.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

// Normalize lowercases and trims an email for use as a lookup key. Reset
// challenges and directory lookups must agree on one canonical form.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValid performs a cheap structural check, enough to reject obvious junk
// before a directory lookup. Full RFC validation is not the goal.
func IsValid(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	if strings.IndexByte(email[at+1:], '.') <= 0 {
		return false
	}
	return len(email) <= 255
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
