// Package naming turns source sample paths into short destination names for
// the M8 tracker's card layout.
//
// A raw segment moves through four stages:
//
//   - Tokenize: NFC (optionally ASCII-folded), fill characters deleted, split
//     characters delimit words.
//   - Filter: phrase replacements (longest first, output marked final), then
//     strike words (prefix or exact match) on non-final tokens.
//   - Assemble: path-scoped dedup, word case, join, truncation at a word
//     boundary, placeholder when empty.
//   - Flatten: all ancestor directories collapse into one directory; the
//     file name is deduplicated against what the directory still shows.
//
// CollisionResolver then makes destinations unique within a run. Everything
// except the resolver is a pure function of (raw path, Options).
package naming
