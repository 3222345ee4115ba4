// utils/names.go
package utils

import "strings"

// NormalizeZoneName trims and uppercases a zone name as published
// (e.g., "Capitl " -> "CAPITL") so lookups hit one canonical row.
func NormalizeZoneName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// NormalizeFuelName converts a published fuel category (e.g., "Natural Gas")
// to its stored form ("natural_gas").
func NormalizeFuelName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(lower, " ", "_")
}

// NormalizeInterfaceName trims an interface name. Interface names keep the
// publisher's casing ("SCH - HQ_CEDARS") since they embed tie identifiers.
func NormalizeInterfaceName(name string) string {
	return strings.TrimSpace(name)
}
