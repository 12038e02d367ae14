package engine

import (
	"io"
	"log/slog"

	"github.com/itsmostafa/scriptbridge/internal/bindings"
	"github.com/itsmostafa/scriptbridge/internal/session"
)

type flusher interface {
	Flush() error
}

// withRedirectedStreams points the session's streams at the context's
// reader and writers for the duration of body. Writers that buffer are
// flushed before the previous streams come back, on every exit path.
func withRedirectedStreams(sess session.Session, sc *bindings.ScriptContext, logger *slog.Logger, body func() (any, error)) (any, error) {
	restore := sess.Redirect(session.Streams{
		In:  sc.Reader(),
		Out: sc.Writer(),
		Err: sc.ErrorWriter(),
	})
	defer func() {
		flush(sc.Writer(), logger)
		flush(sc.ErrorWriter(), logger)
		restore()
	}()
	return body()
}

func flush(w io.Writer, logger *slog.Logger) {
	f, ok := w.(flusher)
	if !ok {
		return
	}
	if err := f.Flush(); err != nil {
		logger.Warn("flushing script output", "error", err)
	}
}
