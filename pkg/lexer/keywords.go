package lexer

import "sort"

// Keywords builds a type transform from a mapping of token type to the
// keyword literals it covers. The returned function yields the matching type,
// or the empty string when the text is not a keyword, so an identifier rule
// can reclassify the matches that happen to be keywords:
//
//	lexer.Rule{
//		Type:   "identifier",
//		Match:  []lexer.Pattern{lexer.Re(`[a-zA-Z]+`)},
//		TypeOf: lexer.Keywords(map[string][]string{"kw": {"class"}}),
//	}
//
// When a literal appears under several types, the lexicographically first
// type wins, so the result does not depend on map iteration order.
func Keywords(byType map[string][]string) func(string) string {
	types := make([]string, 0, len(byType))
	for kind := range byType {
		types = append(types, kind)
	}
	sort.Strings(types)

	reverse := make(map[string]string)
	for _, kind := range types {
		for _, keyword := range byType[kind] {
			if _, taken := reverse[keyword]; !taken {
				reverse[keyword] = kind
			}
		}
	}
	return func(text string) string {
		return reverse[text]
	}
}
