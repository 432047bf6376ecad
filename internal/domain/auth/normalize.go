package auth

import "strings"

// NormalizeEmail trims and lower-cases an address so lookups and the
// uniqueness constraint agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
