package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"winter/internal/config"
	"winter/internal/dialect/wix"
	xmldialect "winter/internal/dialect/xml"
	"winter/internal/kb"
	"winter/internal/lint"
	"winter/internal/plugin"
	"winter/internal/rules"
)

// env is everything a command needs to lint: the merged configuration, the
// bundle registry and an engine over the loaded rule sets.
type env struct {
	cfg      *config.Config
	reg      *plugin.Registry
	bundles  []plugin.Bundle
	store    *kb.Store
	sets     map[string]*rules.Set // by bundle name
	engine   *lint.Engine
	loadErrs []rules.LoadError
}

// addRuleFlags registers the flags that select rules.
func addRuleFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("rules", nil, "extra YAML rule files or directories")
	cmd.Flags().StringSlice("disable", nil, "rule ids to disable")
	cmd.Flags().StringSlice("category", nil, "only report these rule categories")
	cmd.Flags().String("store", "", "read-only SQLite rule and schema store")
}

// addLintFlags registers the flags that shape a lint run.
func addLintFlags(cmd *cobra.Command) {
	addRuleFlags(cmd)
	cmd.Flags().Bool("errors-only", false, "report errors only")
	cmd.Flags().String("fail-on", "", "lowest severity that fails the run (error|warning|info|never)")
	cmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	cmd.Flags().Int("max-diagnostics", 0, "maximum diagnostics per file (0=unlimited)")
	cmd.Flags().StringSlice("exclude", nil, "exclude paths matching these patterns")
	cmd.Flags().Bool("cache", false, "reuse results cached on disk")
	cmd.Flags().Bool("timings", false, "show timing information")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, found, err := config.Discover(wd)
	if err != nil {
		return nil, err
	}
	if found {
		log.Debugf("using config %s", cfg.Path)
	}
	return cfg, nil
}

// stringSliceFlag returns the flag value when set, fallback otherwise.
func stringSliceFlag(cmd *cobra.Command, name string, fallback []string) []string {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return fallback
	}
	v, _ := cmd.Flags().GetStringSlice(name)
	return v
}

func intFlag(cmd *cobra.Command, name string, fallback int) int {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return fallback
	}
	v, _ := cmd.Flags().GetInt(name)
	return v
}

func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return fallback
	}
	v, _ := cmd.Flags().GetString(name)
	return v
}

func boolFlag(cmd *cobra.Command, name string, fallback bool) bool {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return fallback
	}
	v, _ := cmd.Flags().GetBool(name)
	return v
}

// newEnv merges flags over the config file and loads the rule tiers.
func newEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e := &env{cfg: cfg}

	if path := stringFlag(cmd, "store", cfg.StorePath()); path != "" {
		store, err := kb.Open(path)
		if err != nil {
			// хранилище необязательно, встроенные правила остаются
			log.Warningf("rule store unavailable: %v", err)
		} else {
			e.store = store
		}
	}

	var opts []wix.Option
	if e.store != nil {
		opts = append(opts, wix.WithDocs(e.store))
	}
	e.bundles = []plugin.Bundle{wix.New(opts...), xmldialect.New()}
	e.reg = plugin.NewRegistry(e.bundles...)

	severity, err := cfg.SeverityOverrides()
	if err != nil {
		e.Close()
		return nil, err
	}
	categories := stringSliceFlag(cmd, "category", cfg.Lint.Categories)
	setOpts := rules.SetOptions{
		Disabled:   append(append([]string(nil), cfg.Rules.Disable...), stringSliceFlag(cmd, "disable", nil)...),
		Severity:   severity,
		Categories: categories,
	}
	files := append(cfg.RulePaths(), stringSliceFlag(cmd, "rules", nil)...)

	e.sets = make(map[string]*rules.Set, len(e.bundles))
	reported := make(map[string]bool)
	for _, b := range e.bundles {
		loadOpts := rules.LoadOptions{
			Builtin:    b.Rules(),
			Files:      files,
			Plugin:     b.Name(),
			SetOptions: setOpts,
		}
		// the store only carries WiX rules
		if e.store != nil && b.Name() == "wix" {
			loadOpts.Store = e.store
		}
		set, errs := rules.Load(ctx, loadOpts)
		e.sets[b.Name()] = set
		for _, le := range errs {
			// rule files are read once per bundle
			if msg := le.Error(); !reported[msg] {
				reported[msg] = true
				e.loadErrs = append(e.loadErrs, le)
			}
		}
	}
	for _, le := range e.loadErrs {
		log.Warningf("%v", le)
		if !isQuiet(cmd) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", le)
		}
	}

	lintOpts, err := lintOptions(cmd, cfg, categories)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.engine = lint.New(e.reg, e.sets, lintOpts)
	return e, nil
}

func lintOptions(cmd *cobra.Command, cfg *config.Config, categories []string) (lint.Options, error) {
	opts := lint.Options{
		Categories:     categories,
		ErrorsOnly:     boolFlag(cmd, "errors-only", false),
		MaxDiagnostics: intFlag(cmd, "max-diagnostics", cfg.Lint.MaxDiagnostics),
		Jobs:           intFlag(cmd, "jobs", cfg.Lint.Jobs),
		Timings:        boolFlag(cmd, "timings", false),
		FailOn:         cfg.FailOn(),
	}
	if s := stringFlag(cmd, "fail-on", ""); s != "" {
		f, err := lint.ParseFailOn(s)
		if err != nil {
			return opts, err
		}
		opts.FailOn = f
	}
	if opts.Jobs < 0 || opts.MaxDiagnostics < 0 {
		return opts, fmt.Errorf("--jobs and --max-diagnostics must not be negative")
	}
	if boolFlag(cmd, "cache", cfg.Cache.Enabled) {
		cache, err := lint.OpenCache(cfg.CacheDir())
		if err != nil {
			log.Warningf("result cache disabled: %v", err)
		} else {
			opts.Cache = cache
		}
	}
	return opts, nil
}

// inputs expands args (the working directory when empty) into lintable files.
func (e *env) inputs(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	return lint.ExpandInputs(e.reg, args, stringSliceFlag(cmd, "exclude", e.cfg.Lint.Exclude))
}

func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			log.Debugf("close store: %v", err)
		}
	}
}
