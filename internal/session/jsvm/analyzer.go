package jsvm

import (
	"errors"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

// incompleteMarkers are parser messages meaning the input stopped early
// rather than being malformed.
var incompleteMarkers = []string{
	"end of input",
	"unterminated",
	"unexpected eof",
}

// Analyze splits the first top-level statement off src. Text that fails to
// parse because it ends too early is reported incomplete. Text that fails for
// any other reason is returned whole so that submitting it yields a
// diagnostic.
func Analyze(src string) session.Completion {
	if strings.TrimSpace(src) == "" {
		return session.Completion{Complete: true}
	}

	prg, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		if isIncomplete(src, err) {
			return session.Completion{Remaining: src}
		}
		return session.Completion{Complete: true, Source: src}
	}

	body := statements(prg)
	if len(body) <= 1 {
		return session.Completion{Complete: true, Source: src}
	}

	if cut, ok := splitPoint(src, body); ok {
		return session.Completion{
			Complete:  true,
			Source:    src[:cut],
			Remaining: src[cut:],
		}
	}
	// The statements could not be separated textually; evaluate them as one
	// unit.
	return session.Completion{Complete: true, Source: src}
}

// splitPoint finds the offset separating the first statement from the rest.
// The parser reports where the second statement's first token is, which can
// sit after opening brackets belonging to that statement, so candidates are
// verified by reparsing both halves.
func splitPoint(src string, body []ast.Statement) (int, bool) {
	start := int(body[1].Idx0()) - 1
	if start <= 0 || start > len(src) {
		return 0, false
	}
	for cut := start; cut > 0; cut-- {
		if cut < start && !strings.ContainsRune("([` \t\r\n", rune(src[cut])) {
			break
		}
		if countStatements(src[:cut]) == 1 && countStatements(src[cut:]) == len(body)-1 {
			return cut, true
		}
	}
	return 0, false
}

func countStatements(src string) int {
	prg, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return -1
	}
	return len(statements(prg))
}

// statements drops empty statements left by stray semicolons.
func statements(prg *ast.Program) []ast.Statement {
	out := make([]ast.Statement, 0, len(prg.Body))
	for _, st := range prg.Body {
		if _, ok := st.(*ast.EmptyStatement); ok {
			continue
		}
		out = append(out, st)
	}
	return out
}

func isIncomplete(src string, err error) bool {
	var list parser.ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			if hasIncompleteMarker(e.Message) {
				return true
			}
			// A string running to the end of input is reported as an
			// illegal token at its opening quote.
			if strings.Contains(e.Message, "ILLEGAL") {
				at := session.OffsetOf(src, session.Position{Line: e.Position.Line, Column: e.Position.Column})
				if session.OpenQuote(src, at) {
					return true
				}
			}
		}
		return false
	}
	return hasIncompleteMarker(err.Error())
}

func hasIncompleteMarker(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range incompleteMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
