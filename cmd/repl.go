package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/itsmostafa/scriptbridge/internal/bindings"
	"github.com/itsmostafa/scriptbridge/internal/engine"
)

const historyFile = ".scriptbridge_history"

const continuationPrompt = "... "

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Long: `Start an interactive session. Input is evaluated once it forms a complete
unit; until then a continuation prompt is shown. Ctrl-C discards the pending
input and Ctrl-D exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		if bindingsPath != "" {
			f, err := loadBindingsFile(bindingsPath)
			if err != nil {
				return err
			}
			if err := f.apply(e); err != nil {
				return err
			}
		}
		return runREPL(cmd, e)
	},
}

func init() {
	replCmd.Flags().StringVar(&bindingsPath, "bindings", "", "YAML file with global and local bindings")
	rootCmd.AddCommand(replCmd)
}

func runREPL(cmd *cobra.Command, e *engine.Engine) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	printBanner(out, e)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	sc := e.Context()
	sc.SetWriter(out)
	sc.SetErrorWriter(errOut)

	prompt := e.Language() + "> "
	for {
		src, ok := readUnit(ln, e, prompt)
		if !ok {
			fmt.Fprintln(out)
			return nil
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if quit := replCommand(out, e, trimmed); quit {
				return nil
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(trimmed, "\n", " "))
		v, err := e.Eval(src)
		if err != nil {
			fmt.Fprintln(errOut, formatError(err))
			continue
		}
		printResult(out, v)
	}
}

// readUnit reads lines until the engine reports the input complete. It
// returns false at end of input.
func readUnit(ln *liner.State, e *engine.Engine, prompt string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = continuationPrompt
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			b.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || e.IsComplete(src) {
			return src, true
		}
	}
}

// replCommand runs a colon command and reports whether the REPL should exit.
func replCommand(w io.Writer, e *engine.Engine, command string) bool {
	switch strings.ToLower(command) {
	case ":quit", ":q", ":exit":
		return true
	case ":vars":
		printBindings(w, e.Bindings(bindings.LocalScope).Snapshot())
	case ":globals":
		if g := e.Bindings(bindings.GlobalScope); g != nil {
			printBindings(w, g.Snapshot())
		} else {
			printBindings(w, nil)
		}
	default:
		fmt.Fprintf(w, "unknown command %s. Try :vars, :globals or :quit\n", command)
	}
	return false
}
