package memory

import "unicode"

// tokenize splits text into scoring tokens: each ideographic rune is its own
// token, and runs of two or more alphanumeric runes form a single lowercased
// token. Single alphanumeric runes and all other characters are dropped.
// The same rules feed both the fallback encoder and token-overlap scoring so
// the two degrade paths agree on what a "word" is.
func tokenize(text string) []string {
	var tokens []string
	var run []rune
	flush := func() {
		if len(run) >= 2 {
			tokens = append(tokens, string(run))
		}
		run = run[:0]
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Ideographic, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			run = append(run, unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// tokenSet returns the distinct tokens of text.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}
