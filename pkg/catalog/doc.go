// Package catalog holds the static registry of arithmetic tools.
//
// Invariants:
// - Tool names are unique after canonicalization (trimmed, upper-case).
// - The tool set is closed: every descriptor maps to one Op variant.
// - Descriptions are only disclosed one tool at a time through Describe.
//
// Usage:
//
//	cat := catalog.Default()
//	names := cat.ListNames() // SUM, PRODUCT, DELTA, ...
//	desc, err := cat.Describe("delta")
package catalog
