package naming

import (
	"sort"
	"strings"
)

// Token is a word unit of a segment. Final tokens come from a phrase
// replacement and are exempt from strike words and further replacement.
type Token struct {
	Text  string
	Final bool
}

// phrase is a compiled phrase replacement: the lowercase key tokens and the
// tokens that replace them.
type phrase struct {
	source      string
	key         []string
	keyLen      int
	replacement string
	output      []string
}

// compilePhrases tokenizes every phrase key with the segment rules and
// orders the table longest-first: by token count, then character length,
// then key, so that matching is deterministic.
func (n *Normalizer) compilePhrases(m map[string]string) []phrase {
	out := make([]phrase, 0, len(m))
	for source, replacement := range m {
		key := n.tokenize(source)
		if len(key) == 0 {
			continue
		}
		for i := range key {
			key[i] = strings.ToLower(key[i])
		}
		joined := strings.Join(key, " ")
		out = append(out, phrase{
			source:      source,
			key:         key,
			keyLen:      runeLen(joined),
			replacement: replacement,
			output:      n.tokenize(replacement),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if len(a.key) != len(b.key) {
			return len(a.key) > len(b.key)
		}
		if a.keyLen != b.keyLen {
			return a.keyLen > b.keyLen
		}
		return strings.Join(a.key, " ") < strings.Join(b.key, " ")
	})
	return out
}

// Filter applies phrase replacements and then strike words to a token
// sequence, preserving relative order.
func (n *Normalizer) Filter(tokens []string) []Token {
	return n.Strike(n.ReplacePhrases(tokens))
}

// ReplacePhrases scans tokens left to right; at each position the longest
// phrase whose key matches the following tokens case-insensitively is
// replaced by its output tokens, marked Final. Unmatched tokens pass through.
func (n *Normalizer) ReplacePhrases(tokens []string) []Token {
	out := make([]Token, 0, len(tokens))
	for i := 0; i < len(tokens); {
		p, ok := n.matchPhrase(tokens, i)
		if !ok {
			out = append(out, Token{Text: tokens[i]})
			i++
			continue
		}
		for _, w := range p.output {
			out = append(out, Token{Text: w, Final: true})
		}
		i += len(p.key)
	}
	return out
}

func (n *Normalizer) matchPhrase(tokens []string, at int) (phrase, bool) {
	for _, p := range n.phrases {
		if at+len(p.key) > len(tokens) {
			continue
		}
		match := true
		for j, k := range p.key {
			if strings.ToLower(tokens[at+j]) != k {
				match = false
				break
			}
		}
		if match {
			return p, true
		}
	}
	return phrase{}, false
}

// Strike removes every non-final token matched by a strike word.
func (n *Normalizer) Strike(tokens []Token) []Token {
	if len(n.strikes) == 0 {
		return tokens
	}
	out := tokens[:0:0]
	for _, t := range tokens {
		if !t.Final && n.struck(t.Text) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (n *Normalizer) struck(word string) bool {
	lower := strings.ToLower(word)
	for _, s := range n.strikes {
		if n.opts.StrikeMatch == StrikeExact {
			if lower == s {
				return true
			}
			continue
		}
		if strings.HasPrefix(lower, s) {
			return true
		}
	}
	return false
}
