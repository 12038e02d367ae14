package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

// split cuts src into complete units using the session's analyzer. The
// whole source is analyzed before anything is submitted, so incomplete
// input leaves the session untouched.
func split(sess session.Session, src string) ([]string, error) {
	var units []string
	rest := src
	for strings.TrimSpace(rest) != "" {
		c := sess.Analyze(rest)
		if !c.Complete {
			return nil, &IncompleteInputError{Remaining: c.Remaining}
		}
		if c.Remaining == rest {
			// The analyzer made no progress; hand the rest over whole.
			units = append(units, rest)
			break
		}
		if strings.TrimSpace(c.Source) != "" {
			units = append(units, c.Source)
		}
		rest = c.Remaining
	}
	return units, nil
}

// submitAll submits the units in order. It returns the events of the final
// unit and the names the units declared. Failures in earlier units are
// logged and otherwise ignored.
func (e *Engine) submitAll(ctx context.Context, units []string) ([]session.Event, map[string]bool) {
	declared := make(map[string]bool)
	var events []session.Event
	for i, unit := range units {
		e.logger.Debug("submitting unit", "index", i, "source", unit)
		events = e.sess.Submit(ctx, unit)
		for _, ev := range events {
			if ev.Kind == session.EventVar {
				declared[ev.Name] = true
			}
			if i < len(units)-1 && !ev.OK() {
				e.logger.Warn("ignoring failure in non-final unit", "index", i, "kind", ev.Kind, "error", describe(ev))
			}
		}
	}
	return events, declared
}

// extractResult turns the final unit's events into the call's result. The
// first event that decides the outcome wins.
func (e *Engine) extractResult(ctx context.Context, events []session.Event) (any, error) {
	for _, ev := range events {
		switch ev.Kind {
		case session.EventFailed:
			return nil, e.config.Errors.Translate(ev.Err, ev.Trace)
		case session.EventRejected:
			rejected := &CompileRejectedError{Source: ev.Source}
			if ev.Diag != nil {
				rejected.Position = ev.Diag.Position
				rejected.Message = ev.Diag.Message
			}
			return nil, rejected
		case session.EventVar:
			v, err := e.sess.Value(ev.Name)
			if err != nil {
				return nil, &RuntimeFailureError{Err: fmt.Errorf("read variable %s: %w", ev.Name, err)}
			}
			return v, nil
		case session.EventValue:
			v, _ := session.FrameFrom(ctx).Last()
			return v, nil
		}
	}
	return nil, nil
}

func describe(ev session.Event) string {
	switch {
	case ev.Err != nil:
		return ev.Err.Error()
	case ev.Diag != nil:
		return fmt.Sprintf("%s: %s", ev.Diag.Position, ev.Diag.Message)
	default:
		return ev.Kind.String()
	}
}
