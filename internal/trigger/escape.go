package trigger

import "strings"

// EscapeSingleQuotes makes s safe to place between single quotes in a POSIX
// shell: every ' becomes '\''. Nothing else is altered.
func EscapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
