package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"winter/internal/diag"
	"winter/internal/lint"
	"winter/internal/plugin"
	"winter/internal/symbols"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [flags] [rule-id]",
	Short: "List the active rules",
	Long: `List every active rule with its dialect, severity, category and origin tier
(builtin, store or file). With a rule id, print that rule in full.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

func init() {
	addRuleFlags(rulesCmd)
	rulesCmd.Flags().String("format", "text", "output format (text|json)")
}

// ruleRow is one rule as the rules command prints it.
type ruleRow struct {
	ID          string   `json:"id"`
	Plugin      string   `json:"plugin,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Severity    string   `json:"severity"`
	Category    string   `json:"category"`
	Origin      string   `json:"origin"`
	Condition   string   `json:"condition,omitempty"`
	Fix         string   `json:"fix,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Docs        string   `json:"docs,omitempty"`
}

func runRules(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(stringFlag(cmd, "format", "text"))
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	rows := collectRules(e)
	if len(args) == 1 {
		for _, r := range rows {
			if strings.EqualFold(r.ID, args[0]) {
				return writeRules(cmd.OutOrStdout(), format, []ruleRow{r}, true)
			}
		}
		return fmt.Errorf("no active rule %q", args[0])
	}
	return writeRules(cmd.OutOrStdout(), format, rows, false)
}

// collectRules lists every bundle's rule set and document checks plus the
// pipeline and symbol checks, which are always active.
func collectRules(e *env) []ruleRow {
	var rows []ruleRow
	for _, b := range e.bundles {
		set := e.sets[b.Name()]
		for _, r := range set.Rules() {
			row := ruleRow{
				ID:          r.ID,
				Plugin:      b.Name(),
				Title:       r.Title,
				Description: r.Description,
				Severity:    r.Severity.String(),
				Category:    r.Category,
				Origin:      r.Origin.String(),
				Condition:   r.Condition,
				Tags:        r.Tags,
				Docs:        r.DocsURL,
			}
			if r.Fix != nil {
				row.Fix = r.Fix.Safety.String()
			}
			rows = append(rows, row)
		}
		c, ok := b.(plugin.DocumentChecker)
		if !ok {
			continue
		}
		for _, m := range c.CheckRules() {
			d, keep := set.Adjust(diag.Diagnostic{RuleID: m.ID, Severity: m.Severity, Category: m.Category})
			if !keep {
				continue
			}
			rows = append(rows, ruleRow{
				ID:          m.ID,
				Plugin:      b.Name(),
				Title:       m.Title,
				Description: m.Description,
				Severity:    d.Severity.String(),
				Category:    m.Category,
				Origin:      "builtin",
			})
		}
	}
	for _, m := range append(lint.PipelineRules(), symbols.Rules()...) {
		rows = append(rows, ruleRow{
			ID:          m.ID,
			Title:       m.Title,
			Description: m.Description,
			Severity:    m.Severity.String(),
			Category:    m.Category,
			Origin:      "builtin",
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

func writeRules(w io.Writer, format string, rows []ruleRow, detail bool) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if detail {
			return enc.Encode(rows[0])
		}
		return enc.Encode(rows)
	}
	if detail {
		r := rows[0]
		fmt.Fprintf(w, "%s\n  %s\n\n", r.ID, r.Title)
		if r.Description != "" && r.Description != r.Title {
			fmt.Fprintf(w, "  %s\n\n", r.Description)
		}
		if r.Plugin != "" {
			fmt.Fprintf(w, "  plugin:    %s\n", r.Plugin)
		}
		fmt.Fprintf(w, "  severity:  %s\n  category:  %s\n  origin:    %s\n", r.Severity, r.Category, r.Origin)
		if r.Condition != "" {
			fmt.Fprintf(w, "  condition: %s\n", r.Condition)
		}
		if r.Fix != "" {
			fmt.Fprintf(w, "  fix:       %s\n", r.Fix)
		}
		if len(r.Tags) > 0 {
			fmt.Fprintf(w, "  tags:      %s\n", strings.Join(r.Tags, ", "))
		}
		if r.Docs != "" {
			fmt.Fprintf(w, "  docs:      %s\n", r.Docs)
		}
		return nil
	}
	width := len("RULE")
	for _, r := range rows {
		width = max(width, len(r.ID))
	}
	fmt.Fprintf(w, "%-*s  %-6s  %-8s  %-14s  %-7s  %s\n", width, "RULE", "PLUGIN", "SEVERITY", "CATEGORY", "ORIGIN", "FIX")
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s  %-6s  %-8s  %-14s  %-7s  %s\n", width, r.ID, r.Plugin, r.Severity, r.Category, r.Origin, r.Fix)
	}
	_, err := fmt.Fprintf(w, "\n%d rules\n", len(rows))
	return err
}
