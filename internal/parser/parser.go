// Package parser is a minimal stand-in for an external shell parser. It
// understands exactly enough grammar to drive the execution engine: simple
// commands, `|` pipelines, `&&`/`||`/`;` term separators, and a trailing `&`
// background marker. No quoting, variables, globbing, or redirections.
package parser

import (
	"strings"

	"github.com/tjper/smash/internal/ast"
)

// ErrEmpty indicates the script contained no commands; the caller treats
// this as a successful no-op rather than an error.
var ErrEmpty = errEmpty{}

type errEmpty struct{}

func (errEmpty) Error() string { return "parser: empty script" }

// FatalError indicates the script could not be parsed; the caller treats
// this as a failed script rather than a crash.
type FatalError struct{ msg string }

func (e FatalError) Error() string { return "parser: " + e.msg }

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPipe
	tokAnd
	tokOr
	tokSemi
	tokAmp
	tokEOF
)

type token struct {
	kind       tokenKind
	text       string
	start, end int
}

// Parse lexes and parses source into an Ast, or returns ErrEmpty /
// FatalError.
func Parse(source string) (*ast.Ast, error) {
	toks, err := lex(source)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 && toks[0].kind == tokEOF {
		return nil, ErrEmpty
	}

	p := &parser{source: source, toks: toks}
	terms, err := p.parseScript()
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, ErrEmpty
	}
	return &ast.Ast{Terms: terms}, nil
}

func lex(source string) ([]token, error) {
	var toks []token
	i := 0
	n := len(source)
	for i < n {
		c := source[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '|':
			if i+1 < n && source[i+1] == '|' {
				toks = append(toks, token{kind: tokOr, text: "||", start: i, end: i + 2})
				i += 2
			} else {
				toks = append(toks, token{kind: tokPipe, text: "|", start: i, end: i + 1})
				i++
			}
		case c == '&':
			if i+1 < n && source[i+1] == '&' {
				toks = append(toks, token{kind: tokAnd, text: "&&", start: i, end: i + 2})
				i += 2
			} else {
				toks = append(toks, token{kind: tokAmp, text: "&", start: i, end: i + 1})
				i++
			}
		case c == ';':
			toks = append(toks, token{kind: tokSemi, text: ";", start: i, end: i + 1})
			i++
		default:
			start := i
			for i < n && !strings.ContainsRune(" \t\n|&;", rune(source[i])) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: source[start:i], start: start, end: i})
		}
	}
	toks = append(toks, token{kind: tokEOF, start: n, end: n})
	return toks, nil
}

type parser struct {
	source string
	toks   []token
	pos    int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseScript() ([]ast.Term, error) {
	var terms []ast.Term
	for p.peek().kind != tokEOF {
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func (p *parser) parseTerm() (ast.Term, error) {
	startTok := p.peek()

	pipeline, err := p.parsePipeline(ast.Always)
	if err != nil {
		return ast.Term{}, err
	}
	pipelines := []ast.Pipeline{pipeline}

	for {
		switch p.peek().kind {
		case tokAnd:
			p.next()
			pl, err := p.parsePipeline(ast.Success)
			if err != nil {
				return ast.Term{}, err
			}
			pipelines = append(pipelines, pl)
		case tokOr:
			p.next()
			pl, err := p.parsePipeline(ast.Failure)
			if err != nil {
				return ast.Term{}, err
			}
			pipelines = append(pipelines, pl)
		default:
			goto done
		}
	}
done:

	background := false
	endTok := p.toks[p.pos-1]
	switch p.peek().kind {
	case tokAmp:
		background = true
		p.next()
	case tokSemi:
		p.next()
	}

	code := strings.TrimSpace(p.source[startTok.start:endTok.end])
	return ast.Term{Code: code, Background: background, Pipelines: pipelines}, nil
}

func (p *parser) parsePipeline(runIf ast.RunIf) (ast.Pipeline, error) {
	cmd, err := p.parseCommand()
	if err != nil {
		return ast.Pipeline{}, err
	}
	commands := []ast.Command{cmd}

	for p.peek().kind == tokPipe {
		p.next()
		cmd, err := p.parseCommand()
		if err != nil {
			return ast.Pipeline{}, err
		}
		commands = append(commands, cmd)
	}

	return ast.Pipeline{RunIf: runIf, Commands: commands}, nil
}

func (p *parser) parseCommand() (ast.Command, error) {
	var words []ast.Word
	for p.peek().kind == tokWord {
		words = append(words, ast.Word{Literal: p.next().text})
	}
	if len(words) == 0 {
		return ast.Command{}, FatalError{msg: "expected a command, found " + p.peek().text}
	}
	return ast.Command{Argv: words}, nil
}
