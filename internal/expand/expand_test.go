package expand

import (
	"reflect"
	"testing"

	"github.com/tjper/smash/internal/ast"
)

func TestWords(t *testing.T) {
	tests := map[string]struct {
		words []ast.Word
		want  []string
	}{
		"single word": {
			words: []ast.Word{{Literal: "echo"}},
			want:  []string{"echo"},
		},
		"multiple words": {
			words: []ast.Word{{Literal: "echo"}, {Literal: "hi"}},
			want:  []string{"echo", "hi"},
		},
		"word with embedded IFS splits into fields": {
			words: []ast.Word{{Literal: "a\tb c"}},
			want:  []string{"a", "b", "c"},
		},
		"empty argv": {
			words: nil,
			want:  nil,
		},
		"whitespace-only word expands to nothing": {
			words: []ast.Word{{Literal: "   "}},
			want:  nil,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := Words(test.words)
			if !reflect.DeepEqual(got, test.want) {
				t.Fatalf("Words: actual %v, expected %v", got, test.want)
			}
		})
	}
}
