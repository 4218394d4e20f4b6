package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"winter/internal/fix"
	"winter/internal/source"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] [path|glob ...]",
	Short: "Apply available fixes to WiX files",
	Long: `Lint the inputs and apply their fixes. Safe fixes are applied by default,
unsafe ones only with --unsafe; display-only fixes are never applied.`,
	RunE: runFix,
}

func init() {
	addLintFlags(fixCmd)
	addProfileFlags(fixCmd)
	fixCmd.Flags().Bool("unsafe", false, "also apply unsafe fixes")
	fixCmd.Flags().Bool("once", false, "apply only the first available fix")
	fixCmd.Flags().String("rule", "", "apply fixes of this rule only")
	fixCmd.Flags().Bool("dry-run", false, "print the changes as a diff without writing files")
}

func runFix(cmd *cobra.Command, args []string) error {
	once := boolFlag(cmd, "once", false)
	ruleID := stringFlag(cmd, "rule", "")
	if once && ruleID != "" {
		return fmt.Errorf("--once and --rule are mutually exclusive")
	}
	opts := fix.ApplyOptions{
		Mode:        fix.ApplyModeAll,
		AllowUnsafe: boolFlag(cmd, "unsafe", false),
		DryRun:      boolFlag(cmd, "dry-run", false),
	}
	switch {
	case once:
		opts.Mode = fix.ApplyModeOnce
	case ruleID != "":
		opts.Mode = fix.ApplyModeRule
		opts.RuleID = ruleID
	}

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	paths, err := e.inputs(cmd, args)
	if err != nil {
		return err
	}
	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := e.engine.LintFiles(cmd.Context(), paths)
	if err != nil {
		return fmt.Errorf("fix: lint failed: %w", err)
	}

	applied, applyErr := fix.Apply(source.NewFileSet(), res.Diagnostics(), opts)
	if applyErr != nil && !errors.Is(applyErr, fix.ErrNoFixes) {
		return fmt.Errorf("fix: %w", applyErr)
	}
	return printApplyResult(cmd.OutOrStdout(), applied, opts.DryRun, isQuiet(cmd))
}

func printApplyResult(w io.Writer, res *fix.ApplyResult, dryRun, quiet bool) error {
	if res == nil || len(res.Applied) == 0 {
		if !quiet {
			fmt.Fprintln(w, "No applicable fixes.")
		}
		if res != nil && !quiet {
			printSkipped(w, res.Skipped)
		}
		return nil
	}

	verb := "Applied"
	if dryRun {
		verb = "Would apply"
	}
	fmt.Fprintf(w, "%s %d fix(es):\n", verb, len(res.Applied))
	for _, a := range res.Applied {
		fmt.Fprintf(w, "  %s:%d  %s [%s, %s]\n", a.Path, a.Line, a.Description, a.RuleID, a.Safety)
	}

	if dryRun {
		for _, change := range res.FileChanges {
			fmt.Fprint(w, change.Diff())
		}
	} else if len(res.FileChanges) > 0 {
		fmt.Fprintln(w, "Updated files:")
		for _, change := range res.FileChanges {
			fmt.Fprintf(w, "  %s (%d edits)\n", change.Path, change.EditCount())
		}
	}
	if !quiet {
		printSkipped(w, res.Skipped)
	}
	return nil
}

func printSkipped(w io.Writer, skipped []fix.SkippedFix) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintln(w, "Skipped fixes:")
	for _, s := range skipped {
		fmt.Fprintf(w, "  %s:%d  [%s]: %s\n", s.Path, s.Line, s.RuleID, s.Reason)
	}
}
