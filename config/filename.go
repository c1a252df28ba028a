package config

import "strings"

// CleanFileName makes single path element out of arbitrary text: characters
// file system does not allow and control characters are dropped, leading
// dots are removed.
func CleanFileName(in string) string {
	out := strings.TrimLeft(strings.Map(func(sym rune) rune {
		if sym < 0x20 || strings.ContainsRune(reservedChars, sym) {
			return -1
		}
		return sym
	}, in), ".")
	if out = trimName(out); len(out) == 0 {
		out = "_bad_file_name_"
	}
	return out
}
