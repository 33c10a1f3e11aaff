// Package email derives names and addresses for accounts created on a
// person's behalf in external systems.
package email

import (
	"strings"
	"unicode"
)

// DeriveNameFromEmail splits the local part of an address into a given and
// family name, falling back to "User" for missing parts.
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

// SplitFullName returns the first token and the last token of a display name.
// A single-token name yields an empty family name.
func SplitFullName(fullName string) (string, string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[len(parts)-1]
	}
}

// DeriveWorkEmail builds first.last@domain from a display name. Characters
// outside letters and digits are dropped. Returns "" when nothing usable remains.
func DeriveWorkEmail(fullName, domain string) string {
	domain = strings.TrimSpace(strings.TrimPrefix(domain, "@"))
	if domain == "" {
		return ""
	}
	var local []string
	for _, part := range strings.Fields(fullName) {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, part)
		if cleaned != "" {
			local = append(local, cleaned)
		}
	}
	switch len(local) {
	case 0:
		return ""
	case 1:
		return local[0] + "@" + domain
	default:
		return local[0] + "." + local[len(local)-1] + "@" + domain
	}
}

// Normalize lowercases and trims an address for comparisons.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
