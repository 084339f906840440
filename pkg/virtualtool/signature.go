package virtualtool

import "strings"

// Signature normalizes a question into its exact-match key: surrounding
// whitespace trimmed, internal whitespace runs collapsed to one space, and
// letters lower-cased.
func Signature(question string) string {
	return strings.ToLower(strings.Join(strings.Fields(question), " "))
}
