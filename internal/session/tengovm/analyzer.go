package tengovm

import (
	"errors"
	"strings"

	"github.com/d5/tengo/v2/parser"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

const sourceName = "(main)"

// parsed is a parsed unit along with the file it was parsed into, so node
// positions can be turned back into offsets.
type parsed struct {
	file  *parser.SourceFile
	stmts []parser.Stmt
}

func (p *parsed) offset(pos parser.Pos) int {
	return int(pos) - p.file.Base
}

func parse(src string) (*parsed, error) {
	fileSet := parser.NewFileSet()
	file := fileSet.AddFile(sourceName, -1, len(src))
	p := parser.NewParser(file, []byte(src), nil)
	f, err := p.ParseFile()
	if err != nil {
		return nil, err
	}
	out := &parsed{file: file}
	for _, st := range f.Stmts {
		if _, empty := st.(*parser.EmptyStmt); empty {
			continue
		}
		out.stmts = append(out.stmts, st)
	}
	return out, nil
}

// Analyze splits the leading statement off src.
func Analyze(src string) session.Completion {
	if strings.TrimSpace(src) == "" {
		return session.Completion{Complete: true}
	}
	p, err := parse(src)
	if err != nil {
		if isIncomplete(src, err) {
			return session.Completion{Remaining: src}
		}
		return session.Completion{Complete: true, Source: src}
	}
	if len(p.stmts) <= 1 {
		return session.Completion{Complete: true, Source: src}
	}
	cut := p.offset(p.stmts[1].Pos())
	if cut <= 0 || cut >= len(src) || count(src[:cut]) != 1 || count(src[cut:]) != len(p.stmts)-1 {
		return session.Completion{Complete: true, Source: src}
	}
	return session.Completion{Complete: true, Source: src[:cut], Remaining: src[cut:]}
}

func count(src string) int {
	p, err := parse(src)
	if err != nil {
		return -1
	}
	return len(p.stmts)
}

// isIncomplete reports whether the parser ran out of input rather than
// finding a mistake.
func isIncomplete(src string, err error) bool {
	var list parser.ErrorList
	if !errors.As(err, &list) {
		return false
	}
	for _, e := range list {
		msg := strings.ToLower(e.Msg)
		switch {
		case strings.Contains(msg, "found 'eof'"):
			return true
		case msg == "string literal not terminated", msg == "rune literal not terminated":
			// A line break ends these; only one left open at the end of
			// input is unfinished.
			if session.OpenQuote(src, e.Pos.Offset) {
				return true
			}
		case strings.Contains(msg, "not terminated"):
			return true
		}
	}
	return false
}

func parseDiagnostic(err error) *session.Diagnostic {
	var list parser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		e := list[0]
		return &session.Diagnostic{
			Position: session.Position{Line: e.Pos.Line, Column: e.Pos.Column},
			Message:  e.Msg,
		}
	}
	return &session.Diagnostic{Message: err.Error()}
}
