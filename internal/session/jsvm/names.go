package jsvm

import (
	"regexp"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

var identifierPattern = regexp.MustCompile(`^[\p{L}$_][\p{L}\p{N}$_]*$`)

// isIdentifier reports whether name can be declared as a variable.
func isIdentifier(name string) bool {
	return identifierPattern.MatchString(name) && !isReservedWord(name)
}

// isReservedWord checks if a name is a JavaScript reserved word.
func isReservedWord(name string) bool {
	reserved := map[string]bool{
		"break": true, "case": true, "catch": true, "continue": true,
		"debugger": true, "default": true, "delete": true, "do": true,
		"else": true, "finally": true, "for": true, "function": true,
		"if": true, "in": true, "instanceof": true, "new": true,
		"return": true, "switch": true, "this": true, "throw": true,
		"try": true, "typeof": true, "var": true, "void": true,
		"while": true, "with": true, "let": true, "const": true,
		"class": true, "export": true, "extends": true, "import": true,
		"super": true, "yield": true, "true": true, "false": true,
		"null": true, "enum": true, "await": true,
	}
	return reserved[name]
}

// unitShape describes the top-level statements of one unit.
type unitShape struct {
	// declared lists variable names in declaration order.
	declared []string
	// expression is set when the unit ends with an expression statement.
	expression bool
	// lexical holds the offsets of top-level let/const keywords.
	lexical []lexicalKeyword
}

type lexicalKeyword struct {
	offset int
	word   string
}

func inspect(prg *ast.Program) unitShape {
	var shape unitShape
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			shape.declared = append(shape.declared, name)
		}
	}

	body := statements(prg)
	for _, st := range body {
		switch s := st.(type) {
		case *ast.VariableStatement:
			for _, b := range s.List {
				collectTargets(b.Target, add)
			}
		case *ast.LexicalDeclaration:
			for _, b := range s.List {
				collectTargets(b.Target, add)
			}
			word := "let"
			if s.Token == token.CONST {
				word = "const"
			}
			shape.lexical = append(shape.lexical, lexicalKeyword{offset: int(s.Idx) - 1, word: word})
		}
	}
	if len(body) > 0 {
		_, shape.expression = body[len(body)-1].(*ast.ExpressionStatement)
	}
	return shape
}

// collectTargets walks a binding target and reports every identifier it
// binds, descending into destructuring patterns.
func collectTargets(target ast.Expression, add func(string)) {
	switch t := target.(type) {
	case *ast.Identifier:
		add(t.Name.String())
	case *ast.ArrayPattern:
		for _, el := range t.Elements {
			collectTargets(el, add)
		}
		collectTargets(t.Rest, add)
	case *ast.ObjectPattern:
		for _, p := range t.Properties {
			switch prop := p.(type) {
			case *ast.PropertyShort:
				add(prop.Name.Name.String())
			case *ast.PropertyKeyed:
				collectTargets(prop.Value, add)
			}
		}
		collectTargets(t.Rest, add)
	case *ast.AssignExpression:
		collectTargets(t.Left, add)
	}
}

// rebindLexical rewrites top-level let and const keywords to var so that a
// later unit may declare the same name again, replacing its value. Offsets
// are preserved so diagnostics still point into the submitted text.
func rebindLexical(src string, keywords []lexicalKeyword) string {
	if len(keywords) == 0 {
		return src
	}
	b := []byte(src)
	for _, kw := range keywords {
		end := kw.offset + len(kw.word)
		if kw.offset < 0 || end > len(b) || string(b[kw.offset:end]) != kw.word {
			continue
		}
		copy(b[kw.offset:end], "var  "[:len(kw.word)])
	}
	return string(b)
}
