// Package nrf decodes the layered attribute encodings used by the nrf*
// schema classes of the identity vault.
package nrf

import "strings"

// DecodeLocalizedText decodes a localized attribute of the form
// "lang1~text1|lang2~text2" into a language-to-text map. Segments without
// a "~" separator carry no language key and are dropped; when a language
// repeats, the last segment wins. An empty input yields an empty map.
func DecodeLocalizedText(s string) map[string]string {
	result := make(map[string]string)
	if s == "" {
		return result
	}
	for _, part := range strings.Split(s, "|") {
		if !strings.Contains(part, "~") {
			continue
		}
		kv := strings.SplitN(part, "~", 2)
		result[kv[0]] = kv[1]
	}
	return result
}
