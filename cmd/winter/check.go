package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"winter/internal/baseline"
	"winter/internal/diag"
	"winter/internal/diagfmt"
	"winter/internal/lint"
	"winter/internal/source"
	"winter/internal/ui"
	"winter/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [path|glob ...]",
	Short: "Lint WiX files",
	Long: `Lint files, directories and globs (** supported) as one workspace. Cross-file
references are resolved across every input. The exit status is 1 when a
diagnostic meets --fail-on, 2 on usage or internal errors, 0 otherwise.`,
	RunE: runCheck,
}

func init() {
	addLintFlags(checkCmd)
	addProfileFlags(checkCmd)
	checkCmd.Flags().String("format", "", "output format (pretty|compact|json|sarif|github|junit|gitlab)")
	checkCmd.Flags().String("path-mode", "auto", "how to print file paths (auto|absolute|relative|basename)")
	checkCmd.Flags().StringP("output", "o", "", "write the report to a file instead of stdout")
	checkCmd.Flags().Bool("no-summary", false, "omit the summary line in pretty and compact output")
	checkCmd.Flags().Bool("group", false, "github format: append a collapsible summary group")
	checkCmd.Flags().String("ui", "auto", "progress UI for pretty output (auto|on|off)")
	checkCmd.Flags().String("baseline", "", "baseline file of accepted findings (created when missing)")
	checkCmd.Flags().Bool("update-baseline", false, "add the current findings to the baseline file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	format, err := diagfmt.ParseFormat(stringFlag(cmd, "format", e.cfg.Lint.Format))
	if err != nil {
		return err
	}
	paths, err := e.inputs(cmd, args)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	stdout := os.Stdout
	if target := stringFlag(cmd, "output", ""); target != "" {
		f, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		defer f.Close()
		out, stdout = f, nil
	}

	uiMode, err := readUIMode(stringFlag(cmd, "ui", "auto"))
	if err != nil {
		return err
	}
	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var res *lint.Result
	if format == diagfmt.FormatPretty && stdout != nil && !isQuiet(cmd) && len(paths) > 1 && shouldUseTUI(uiMode) {
		res, err = ui.RunLint(cmd.Context(), os.Stderr, "winter check", e.engine, paths)
	} else {
		res, err = e.engine.LintFiles(cmd.Context(), paths)
	}
	if err != nil {
		return err
	}

	wd, _ := os.Getwd()
	sources := diagfmt.NewFileSetSources(source.NewFileSetWithBase(wd))
	if err := applyBaseline(cmd, e, res, sources); err != nil {
		return err
	}
	if err := writeReport(cmd, out, stdout, format, e, res, sources); err != nil {
		return err
	}
	if boolFlag(cmd, "timings", false) {
		writeTimings(cmd.ErrOrStderr(), res)
	}
	if res.Failed() {
		return errLintFailed
	}
	return nil
}

// applyBaseline drops findings recorded in the baseline file. A missing
// file, or --update-baseline, first records the current findings, so the
// run that writes the baseline reports nothing it accepted.
func applyBaseline(cmd *cobra.Command, e *env, res *lint.Result, lines baseline.Lines) error {
	path := stringFlag(cmd, "baseline", e.cfg.BaselinePath())
	update := boolFlag(cmd, "update-baseline", false)
	if path == "" {
		if update {
			return fmt.Errorf("--update-baseline needs --baseline")
		}
		return nil
	}
	b, created, err := baseline.LoadOrNew(path)
	if err != nil {
		return err
	}
	if created || update {
		pruned := b.PruneMissing()
		added := b.Add(res.Diagnostics(), lines)
		if err := b.Save(path, time.Now()); err != nil {
			return err
		}
		log.Infof("baseline %s: %d added, %d pruned, %d total", path, added, pruned, b.Len())
		if !isQuiet(cmd) {
			verb := "Updated"
			if created {
				verb = "Created"
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s baseline with %d issues at %s\n", verb, b.Len(), path)
		}
	}
	dropped := res.Drop(func(d diag.Diagnostic) bool { return b.Contains(d, lines) })
	if dropped > 0 {
		log.Debugf("%d baselined findings hidden", dropped)
	}
	return nil
}

func writeReport(cmd *cobra.Command, out io.Writer, tty *os.File, format diagfmt.Format, e *env, res *lint.Result, sources diagfmt.Sources) error {
	pathMode, err := diagfmt.ParsePathMode(stringFlag(cmd, "path-mode", "auto"))
	if err != nil {
		return err
	}
	colored := false
	if tty != nil {
		if colored, err = useColor(cmd, tty); err != nil {
			return err
		}
	}
	wd, _ := os.Getwd()
	report := diagfmt.Report{
		Diagnostics: res.Diagnostics(),
		Files:       res.Summary.Files,
		Rules:       e.engine.RuleMeta(),
		Sources:     sources,
		Tool: diagfmt.SarifRunMeta{
			ToolName:       "winter",
			ToolVersion:    version.Version,
			InformationURI: "https://wixtoolset.org/docs/",
			InvocationArgs: append([]string{filepath.Base(os.Args[0])}, os.Args[1:]...),
		},
	}
	opts := diagfmt.WriteOpts{
		Pretty: diagfmt.PrettyOpts{
			Color:       colored,
			PathMode:    pathMode,
			BaseDir:     wd,
			ShowHelp:    true,
			ShowFixes:   true,
			ShowRelated: true,
		},
		JSON:    diagfmt.JSONOpts{PathMode: pathMode, BaseDir: wd},
		GitHub:  diagfmt.GitHubOpts{PathMode: pathMode, BaseDir: wd, Group: boolFlag(cmd, "group", false)},
		JUnit:   diagfmt.JUnitOpts{PathMode: pathMode, BaseDir: wd},
		GitLab:  diagfmt.GitLabOpts{PathMode: repoPathMode(pathMode), BaseDir: wd},
		Summary: !boolFlag(cmd, "no-summary", false) && !isQuiet(cmd),
	}
	return diagfmt.Write(out, format, report, opts)
}

// repoPathMode keeps explicit choices and picks relative paths otherwise.
func repoPathMode(m diagfmt.PathMode) diagfmt.PathMode {
	if m == diagfmt.PathModeAuto {
		return diagfmt.PathModeRelative
	}
	return m
}

func writeTimings(w io.Writer, res *lint.Result) {
	if err := res.Phases.Write(w); err != nil {
		return
	}
	if len(res.RuleTimings) == 0 {
		return
	}
	fmt.Fprintf(w, "slowest rules:\n")
	for i, r := range res.RuleTimings {
		if i == 10 {
			break
		}
		fmt.Fprintf(w, "  %-36s %7.2f ms  (%d calls, max %.3f ms)\n", r.Key, r.TotalMS, r.Calls, r.MaxMS)
	}
}
