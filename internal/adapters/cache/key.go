package cache

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Key normalizes an address into a cache key: Unicode NFC with whitespace
// collapsed, so "Via  Città" typed with a combining accent and the
// precomposed form share one entry. Case is preserved.
func Key(address string) string {
	return strings.Join(strings.Fields(norm.NFC.String(address)), " ")
}

// keysFor maps each distinct non-empty normalized key back to the caller's
// spellings of it.
func keysFor(addresses []string) (map[string][]string, []string) {
	byKey := make(map[string][]string, len(addresses))
	uniq := make([]string, 0, len(addresses))
	for _, a := range addresses {
		k := Key(a)
		if k == "" {
			continue
		}
		if _, ok := byKey[k]; !ok {
			uniq = append(uniq, k)
		}
		byKey[k] = append(byKey[k], a)
	}
	return byKey, uniq
}
