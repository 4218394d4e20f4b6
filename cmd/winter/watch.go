package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"winter/internal/diag"
	"winter/internal/diagfmt"
	"winter/internal/lint"
	"winter/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] [directory]",
	Short: "Re-lint WiX files as they change",
	Long: `Lint the directory once, then re-lint after every batch of changes and print
the diagnostics of the changed files in compact format. References are still
resolved across the whole directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	addLintFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", 0, "coalescing window for file events (default 200ms)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch: %s is not a directory", root)
	}

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	debounce := e.cfg.Debounce()
	if f := cmd.Flags().Lookup("debounce"); f != nil && f.Changed {
		debounce, _ = cmd.Flags().GetDuration("debounce")
	}
	exclude := stringSliceFlag(cmd, "exclude", e.cfg.Lint.Exclude)
	w, err := watch.New(root, watch.Options{
		Debounce:   debounce,
		Extensions: e.reg.Extensions(),
		Ignore:     exclude,
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wr := &watchRunner{env: e, root: root, exclude: exclude, out: cmd.OutOrStdout(), quiet: isQuiet(cmd)}
	if err := wr.lint(ctx, nil); err != nil {
		return err
	}
	if !wr.quiet {
		fmt.Fprintf(wr.out, "watching %s for changes (Ctrl+C to stop)\n", w.Root())
	}
	return w.Run(ctx, func(batch []watch.Change) {
		if err := wr.lint(ctx, batch); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("re-lint: %v", err)
		}
	})
}

type watchRunner struct {
	env     *env
	root    string
	exclude []string
	out     io.Writer
	quiet   bool
}

// lint re-lints the tree and prints the files in batch; a nil batch prints
// everything.
func (r *watchRunner) lint(ctx context.Context, batch []watch.Change) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	paths, err := lint.ExpandInputs(r.env.reg, []string{r.root}, r.exclude)
	if err != nil && !errors.Is(err, lint.ErrNoInputs) {
		return err
	}
	var res *lint.Result
	if len(paths) > 0 {
		if res, err = r.env.engine.LintFiles(ctx, paths); err != nil {
			return err
		}
	}

	var ds []diag.Diagnostic
	files := 0
	if batch == nil {
		if res != nil {
			ds = res.Diagnostics()
			files = res.Summary.Files
		}
	} else {
		changed := make(map[string]bool, len(batch))
		for _, c := range batch {
			changed[filepath.Clean(c.Path)] = true
			if c.Op == watch.OpRemove || c.Op == watch.OpRename {
				if _, err := os.Stat(c.Path); err != nil && !r.quiet {
					fmt.Fprintf(r.out, "%s: removed\n", c.Path)
				}
			}
		}
		if res != nil {
			for _, f := range res.Files {
				abs, _ := filepath.Abs(f.Path)
				if changed[abs] {
					ds = append(ds, f.Diagnostics...)
					files++
				}
			}
		}
		diag.SortDiagnostics(ds)
	}

	if !r.quiet {
		stamp := time.Now().Format("15:04:05")
		if batch == nil {
			fmt.Fprintf(r.out, "[%s] checked %s\n", stamp, r.root)
		} else {
			fmt.Fprintf(r.out, "[%s] %d changed file(s)\n", stamp, len(batch))
		}
	}
	if err := diagfmt.Compact(r.out, ds, diagfmt.PathModeAuto, ""); err != nil {
		return err
	}
	if r.quiet {
		return nil
	}
	return diagfmt.PrettySummary(r.out, diag.Count(ds), files, false)
}
