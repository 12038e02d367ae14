package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var evalSource string
var bindingsPath string
var dump bool

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Evaluate a script and print its result",
	Long: `Evaluate a script file, inline source given with -e, or standard input,
and print the value it produced. Bindings can be loaded from a YAML file and
the resulting bindings printed as YAML with --dump.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(cmd, args)
		if err != nil {
			return err
		}

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
		sc := e.Context()
		sc.SetWriter(cmd.OutOrStdout())
		sc.SetErrorWriter(cmd.ErrOrStderr())
		sc.SetReader(cmd.InOrStdin())

		v, err := e.Eval(src)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), v)

		if dump {
			return dumpBindings(cmd.OutOrStdout(), e)
		}
		return nil
	},
}

func init() {
	evalCmd.Flags().StringVarP(&evalSource, "expr", "e", "", "Source to evaluate instead of a file")
	evalCmd.Flags().StringVar(&bindingsPath, "bindings", "", "YAML file with global and local bindings")
	evalCmd.Flags().BoolVar(&dump, "dump", false, "Print the bindings as YAML after evaluating")

	rootCmd.AddCommand(evalCmd)
}

func readSource(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case evalSource != "":
		return evalSource, nil
	case len(args) == 1 && args[0] != "-":
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read script: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read script: %w", err)
		}
		return string(data), nil
	}
}
