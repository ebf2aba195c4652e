package naming

import (
	"fmt"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// tokenCacheSize bounds the memoized tokenizations. Directory segments repeat
// for every file of a pack, so even a small cache removes most of the work.
const tokenCacheSize = 4096

// Normalizer applies Options to raw path segments. It is safe for concurrent
// use: all fields are read-only after construction and the token cache is
// internally synchronized.
type Normalizer struct {
	opts    Options
	split   runeSet
	fill    runeSet
	phrases []phrase
	strikes []string
	cache   *lru.Cache[string, []string]
}

// NewNormalizer validates opts and precompiles the split/fill sets, the
// phrase table, and the strike-word list.
func NewNormalizer(opts Options) (*Normalizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cache, err := lru.New[string, []string](tokenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("token cache: %w", err)
	}

	n := &Normalizer{
		opts:  opts,
		split: newRuneSet(opts.SplitPunctuation + opts.JoinSep),
		fill:  newRuneSet(opts.FillPunctuation),
		cache: cache,
	}
	for _, w := range opts.StrikeWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			n.strikes = append(n.strikes, w)
		}
	}
	n.phrases = n.compilePhrases(opts.Phrases)

	if err := n.checkReplacements(); err != nil {
		return nil, err
	}
	return n, nil
}

// Options returns the options the normalizer was built from.
func (n *Normalizer) Options() Options { return n.opts }

// maxSettle bounds how often a result is normalized again before it is
// accepted. A hard-truncated word is new text the filters have not seen yet;
// one or two extra passes settle it.
const maxSettle = 8

// Segment normalizes a single raw path segment on its own (fresh dedup
// scope) and bounds it to limit runes. The result normalizes to itself.
func (n *Normalizer) Segment(raw string, limit int) string {
	out := n.segmentOnce(raw, limit)
	for range maxSettle {
		next := n.segmentOnce(out, limit)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func (n *Normalizer) segmentOnce(raw string, limit int) string {
	tokens := n.Filter(n.Tokenize(raw))
	words := n.formatAll(n.dedupeLocal(tokens))
	return n.assemble(words, limit)
}

// checkReplacements rejects phrase replacements whose output would be removed
// by a strike word when a destination name is normalized again. Without this
// rule re-running over already-normalized names would not be a fixed point.
func (n *Normalizer) checkReplacements() error {
	for _, p := range n.phrases {
		for _, tok := range p.output {
			if n.struck(tok) {
				return fmt.Errorf("phrase replacement %q -> %q produces %q, which a strike word removes",
					p.source, p.replacement, tok)
			}
		}
		for i := range p.output {
			q, ok := n.matchPhrase(p.output, i)
			if ok && !sameWords(q.output, p.output[i:i+len(q.key)]) {
				return fmt.Errorf("phrase replacement %q -> %q is rewritten again by %q",
					p.source, p.replacement, q.source)
			}
		}
	}
	return nil
}

func sameWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
