// Package expand implements a minimal stand-in for word expansion, ported
// from smash's expand.rs: literal-word splitting on IFS. No variable
// substitution, field splitting beyond IFS, or globbing.
package expand

import (
	"strings"

	"github.com/tjper/smash/internal/ast"
)

// IFS is the set of characters used to split expanded words into fields,
// ported verbatim from smash's Shell.ifs().
const IFS = "\n\t "

// Words expands a command's argv words into the post-expansion argv. An
// empty result is valid and means the command is a no-op.
func Words(words []ast.Word) []string {
	var out []string
	for _, w := range words {
		out = append(out, splitIFS(w.Literal)...)
	}
	return out
}

// splitIFS splits s on any IFS rune, dropping empty fields produced by
// adjacent separators, matching expand_word_into_vec's folding of literal
// fragments.
func splitIFS(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(IFS, r)
	})
	return fields
}
