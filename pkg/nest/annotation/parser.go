// Package annotation declares controllers from decorator strings such as
//
//	@Controller('users')
//	@Get(':id') FindOne(@Param('id'))
//
// and records the same metadata the nest declaration helpers write.
package annotation

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Decorator is one "@Name(args...)" occurrence
type Decorator struct {
	Name string   `parser:"'@' @Ident"`
	Args []string `parser:"( '(' ( @String ( ',' @String )* )? ')' )?"`
}

// Declaration is a line of decorators, optionally followed by the handler
// method they apply to and its parameter decorators
type Declaration struct {
	Decorators []*Decorator `parser:"@@+"`
	Handler    string       `parser:"( @Ident"`
	Params     []*Decorator `parser:"  ( '(' ( @@ ( ',' @@ )* )? ')' )? )?"`
}

var declarationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'(\\'|[^'])*'|"(\\"|[^"])*"`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[@(),]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var parser = participle.MustBuild[Declaration](
	participle.Lexer(declarationLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse parses one declaration line
func Parse(src string) (*Declaration, error) {
	decl, err := parser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	for _, d := range decl.Decorators {
		d.unquote()
	}
	for _, p := range decl.Params {
		p.unquote()
	}
	return decl, nil
}

func (d *Decorator) unquote() {
	for i, arg := range d.Args {
		if len(arg) >= 2 {
			quote := arg[:1]
			arg = arg[1 : len(arg)-1]
			arg = strings.ReplaceAll(arg, `\`+quote, quote)
		}
		d.Args[i] = arg
	}
}

// Arg returns the first argument or the empty string
func (d *Decorator) Arg() string {
	if len(d.Args) == 0 {
		return ""
	}
	return d.Args[0]
}
