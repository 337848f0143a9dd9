// SPDX-License-Identifier: MPL-2.0

// Package gosyntax holds the Go syntax helpers shared by the program-model
// adapters.
package gosyntax

import (
	"errors"
	"fmt"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"

	"github.com/invowk/metagen/pkg/model"
)

// ErrInvalidDirective is the sentinel error wrapped by DirectiveError.
var ErrInvalidDirective = errors.New("invalid directive")

// DirectiveError reports a directive comment that could not be parsed.
type DirectiveError struct {
	Text   string
	Reason string
}

// Error implements the error interface.
func (e *DirectiveError) Error() string {
	return fmt.Sprintf("directive %q: %s", e.Text, e.Reason)
}

// Unwrap returns ErrInvalidDirective for errors.Is() compatibility.
func (e *DirectiveError) Unwrap() error { return ErrInvalidDirective }

// SplitDirective recognizes "//ns:Name..." comments. Directives follow the
// Go convention: no space after the slashes and a lowercase namespace.
func SplitDirective(comment string) (ns, rest string, ok bool) {
	text, found := strings.CutPrefix(comment, "//")
	if !found || text == "" || text[0] == ' ' || text[0] == '\t' {
		return "", "", false
	}
	ns, rest, found = strings.Cut(text, ":")
	if !found || ns == "" || rest == "" {
		return "", "", false
	}
	for i := range len(ns) {
		c := ns[i]
		if (c < 'a' || c > 'z') && (i == 0 || c < '0' || c > '9') {
			return "", "", false
		}
	}
	return ns, strings.TrimSpace(rest), true
}

// ParseDecoration parses "ns:Name(args)" written without the comment
// slashes, the form model documents use.
func ParseDecoration(text string) (model.Decoration, error) {
	ns, body, ok := SplitDirective("//" + text)
	if !ok {
		return model.Decoration{}, &DirectiveError{Text: text, Reason: "want namespace:Name"}
	}
	return ParseDirective(ns, body)
}

// ParseDirective parses a directive body such as
// `Entity("Orders", weight=2)` into a decoration of namespace ns.
// Arguments are Go literals: strings, integers, floats, true and false.
// Named arguments follow the positional ones.
func ParseDirective(ns, body string) (model.Decoration, error) {
	d := model.Decoration{Namespace: ns}
	name, args, hasArgs := strings.Cut(body, "(")
	d.Name = strings.TrimSpace(name)
	if !token.IsIdentifier(d.Name) {
		return model.Decoration{}, &DirectiveError{Text: body, Reason: "name must be an identifier"}
	}
	if !hasArgs {
		return d, nil
	}
	args, ok := strings.CutSuffix(strings.TrimSpace(args), ")")
	if !ok {
		return model.Decoration{}, &DirectiveError{Text: body, Reason: "missing closing parenthesis"}
	}

	p := newArgParser(args)
	for !p.done() {
		key := ""
		if p.tok == token.IDENT && p.peekAssign() {
			key = p.lit
			p.next()
			p.next()
		}
		lit, err := p.literal()
		if err != nil {
			return model.Decoration{}, &DirectiveError{Text: body, Reason: err.Error()}
		}
		switch {
		case key != "":
			if _, dup := d.NamedValue(key); dup {
				return model.Decoration{}, &DirectiveError{Text: body, Reason: "argument " + key + " repeated"}
			}
			d.Named = append(d.Named, model.NamedArg{Name: key, Value: lit})
		case len(d.Named) > 0:
			return model.Decoration{}, &DirectiveError{Text: body, Reason: "positional argument after named argument"}
		default:
			d.Args = append(d.Args, lit)
		}
		if p.done() {
			break
		}
		if p.tok != token.COMMA {
			return model.Decoration{}, &DirectiveError{Text: body, Reason: fmt.Sprintf("unexpected %s", p.describe())}
		}
		p.next()
	}
	return d, nil
}

type argParser struct {
	s     scanner.Scanner
	tok   token.Token
	lit   string
	ahead []lexeme
	errs  int
}

type lexeme struct {
	tok token.Token
	lit string
}

func newArgParser(src string) *argParser {
	p := &argParser{}
	file := token.NewFileSet().AddFile("directive", -1, len(src))
	p.s.Init(file, []byte(src), func(token.Position, string) { p.errs++ }, 0)
	p.next()
	return p
}

func (p *argParser) scan() lexeme {
	_, tok, lit := p.s.Scan()
	// The scanner inserts a semicolon at the end of a line ending in a literal.
	if tok == token.SEMICOLON && lit == "\n" {
		_, tok, lit = p.s.Scan()
	}
	return lexeme{tok: tok, lit: lit}
}

func (p *argParser) next() {
	var l lexeme
	if len(p.ahead) > 0 {
		l, p.ahead = p.ahead[0], p.ahead[1:]
	} else {
		l = p.scan()
	}
	p.tok, p.lit = l.tok, l.lit
}

func (p *argParser) peekAssign() bool {
	if len(p.ahead) == 0 {
		p.ahead = append(p.ahead, p.scan())
	}
	return p.ahead[0].tok == token.ASSIGN
}

func (p *argParser) done() bool { return p.tok == token.EOF }

func (p *argParser) describe() string {
	if p.lit != "" {
		return strconv.Quote(p.lit)
	}
	return p.tok.String()
}

func (p *argParser) literal() (model.Literal, error) {
	neg := false
	if p.tok == token.SUB {
		neg = true
		p.next()
	}
	var lit model.Literal
	switch p.tok {
	case token.STRING:
		s, err := strconv.Unquote(p.lit)
		if err != nil || neg {
			return model.Literal{}, fmt.Errorf("malformed string %s", p.lit)
		}
		lit = model.String(s)
	case token.INT:
		v, err := strconv.ParseInt(p.lit, 0, 64)
		if err != nil {
			return model.Literal{}, fmt.Errorf("malformed integer %s", p.lit)
		}
		if neg {
			v = -v
		}
		lit = model.Int(v)
	case token.FLOAT:
		v, err := strconv.ParseFloat(p.lit, 64)
		if err != nil {
			return model.Literal{}, fmt.Errorf("malformed float %s", p.lit)
		}
		if neg {
			v = -v
		}
		lit = model.Literal{Kind: model.LiteralFloat, Text: strconv.FormatFloat(v, 'g', -1, 64)}
	case token.IDENT:
		if neg || (p.lit != "true" && p.lit != "false") {
			return model.Literal{}, fmt.Errorf("unsupported argument %s", p.describe())
		}
		lit = model.Bool(p.lit == "true")
	default:
		return model.Literal{}, fmt.Errorf("unexpected %s", p.describe())
	}
	if p.errs > 0 {
		return model.Literal{}, errors.New("malformed literal")
	}
	p.next()
	return lit, nil
}
