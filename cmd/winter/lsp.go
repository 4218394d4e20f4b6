package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"winter/internal/lsp"
	"winter/internal/version"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the winter language server over stdio",
	Long: `Serve the Language Server Protocol on stdin/stdout. Logs go to stderr or
--log-file, never to stdout.`,
	Args: cobra.NoArgs,
	RunE: runLSP,
}

func init() {
	addRuleFlags(lspCmd)
	lspCmd.Flags().Duration("debounce", 0, "delay before re-analysing after an edit (default 200ms)")
	lspCmd.Flags().Int("max-diagnostics", 0, "maximum diagnostics published per document (default 500)")
	lspCmd.Flags().Bool("no-scan", false, "do not index workspace files that are not open")
}

func runLSP(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	debounce, _ := cmd.Flags().GetDuration("debounce")
	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Engine:          e.engine,
		Debounce:        debounce,
		MaxDiagnostics:  intFlag(cmd, "max-diagnostics", 0),
		Version:         version.Version,
		NoWorkspaceScan: boolFlag(cmd, "no-scan", false),
	})
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return &exitError{code: 1, err: fmt.Errorf("lsp exit without shutdown")}
		}
		return err
	}
	return nil
}
