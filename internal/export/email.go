package export

import "strings"

// EmailIssue reports whether an address contains a comma, a space, or a
// character outside [A-Za-z0-9.@_-]. Empty addresses have no issue.
func EmailIssue(addr string) bool {
	for _, r := range addr {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '@', r == '_', r == '-':
		default:
			return true
		}
	}
	return false
}

// MultipleAddresses reports whether the field holds more than one address,
// detected as two or more '@'.
func MultipleAddresses(addr string) bool {
	return strings.Count(addr, "@") >= 2
}

// ValidEmail reports whether addr is usable for a mailing list.
func ValidEmail(addr string) bool {
	return addr != "" && !EmailIssue(addr) && !MultipleAddresses(addr)
}
