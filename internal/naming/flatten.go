package naming

import (
	"path/filepath"
	"strings"
)

// Mapping is the destination chosen for one source file, relative to the
// destination root.
type Mapping struct {
	Dir        string // Flattened directory; empty for files at the source root.
	File       string // File name including OutputExt.
	FileBudget int    // Longest File allowed without breaking the output limit.
}

// Path returns the destination path relative to the destination root.
func (m Mapping) Path() string {
	if m.Dir == "" {
		return m.File
	}
	return filepath.Join(m.Dir, m.File)
}

// Flatten maps a source path (relative to the source root) to its
// destination. Every ancestor directory collapses into one directory whose
// tokens are the root-to-leaf concatenation of the ancestors' tokens; the
// file keeps its own segment. With DedupePath, words already present in the
// directory are removed from the file name unless that would leave it
// without words.
//
// Length bounds: Dir <= MaxDirLength, File <= MaxFileLength, and
// Dir + separator + File <= MaxOutputLength. When the total is too long the
// directory is shortened first. Flattening m.Path() again returns m.
func (n *Normalizer) Flatten(rel string) Mapping {
	m := n.flattenOnce(rel)
	for range maxSettle {
		next := n.flattenOnce(m.Path())
		if next == m {
			break
		}
		m = next
	}
	return m
}

func (n *Normalizer) flattenOnce(rel string) Mapping {
	parts := splitPath(rel)
	if len(parts) == 0 {
		return Mapping{File: n.fileName(nil, n.stemLimit(n.fileMax())), FileBudget: n.fileMax()}
	}
	last := parts[len(parts)-1]
	stem := strings.TrimSuffix(last, filepath.Ext(last))
	fileTokens := n.Filter(n.Tokenize(stem))

	if len(parts) == 1 {
		file := n.fileName(n.dedupeLocal(fileTokens), n.stemLimit(n.fileMax()))
		return Mapping{File: file, FileBudget: n.fileMax()}
	}

	var dirTokens []Token
	for _, d := range parts[:len(parts)-1] {
		dirTokens = append(dirTokens, n.Filter(n.Tokenize(d))...)
	}
	dirWords := n.formatAll(n.dedupeLocal(dirTokens))
	return n.layout(dirWords, fileTokens)
}

// layout places the directory and file under the length limits. The file is
// deduplicated only against directory words that survive truncation, which
// can lengthen the file and in turn shorten the directory; the loop runs
// until neither changes. Each pass keeps fewer whole directory words than the
// previous one, so it terminates. A hard-truncated first word still shows in
// the directory and counts as visible.
func (n *Normalizer) layout(dirWords []string, fileTokens []Token) Mapping {
	maxOut := n.opts.MaxOutputLength
	visible := dirWords
	shown := len(dirWords)
	stemLimit := n.stemLimit(n.fileMax())

	for {
		file := n.fileName(n.dedupeAgainst(fileTokens, visible), stemLimit)

		budget := maxOut - 1 - max(runeLen(file), MinFileLength)
		if budget < 1 {
			// Directory needs at least one character; shorten the file.
			stemLimit = n.stemLimit(min(maxOut-2, n.fileMax()))
			continue
		}
		budget = min(budget, n.opts.MaxDirLength)

		dir, kept := n.fit(dirWords, budget)
		if dir == "" {
			dir = n.truncate(n.format(n.opts.Placeholder), budget)
		}
		if kept >= shown {
			return Mapping{
				Dir:        dir,
				File:       file,
				FileBudget: min(n.fileMax(), maxOut-1-runeLen(dir)),
			}
		}
		shown = kept
		visible = dirWords[:kept]
		if kept == 0 {
			visible = []string{dir}
		}
	}
}

// dedupeAgainst deduplicates file tokens against dir words, falling back to
// a self-only dedup when every token would be removed.
func (n *Normalizer) dedupeAgainst(tokens []Token, dirWords []string) []Token {
	seen := scope{}
	for _, w := range dirWords {
		seen.add(w)
	}
	out := n.dedupe(tokens, seen)
	if len(out) == 0 {
		return n.dedupeLocal(tokens)
	}
	return out
}

func (n *Normalizer) fileName(tokens []Token, stemLimit int) string {
	return n.assemble(n.formatAll(tokens), stemLimit) + OutputExt
}

func (n *Normalizer) fileMax() int {
	return min(n.opts.MaxFileLength, n.opts.MaxOutputLength)
}

func (n *Normalizer) stemLimit(fileLimit int) int {
	return max(fileLimit-len(OutputExt), 1)
}

func splitPath(rel string) []string {
	var parts []string
	for _, p := range strings.Split(filepath.ToSlash(rel), "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}
