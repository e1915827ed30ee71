package utils

import "strings"

// NormalizeTableNumber menyamakan format nomor meja antar registry.
// Nomor numerik dengan leading zero ("007") disamakan menjadi "7";
// nomor non-numerik ("A1") hanya di-trim dan di-uppercase.
func NormalizeTableNumber(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	numeric := true
	for _, r := range s {
		if r < '0' || r > '9' {
			numeric = false
			break
		}
	}

	if numeric {
		trimmed := strings.TrimLeft(s, "0")
		if trimmed == "" {
			return "0"
		}
		return trimmed
	}

	return strings.ToUpper(s)
}

// SameTableNumber membandingkan dua nomor meja setelah normalisasi
func SameTableNumber(a, b string) bool {
	return NormalizeTableNumber(a) == NormalizeTableNumber(b)
}
