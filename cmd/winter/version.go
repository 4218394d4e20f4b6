package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"winter/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show winter build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		info := version.Current()
		switch strings.ToLower(format) {
		case "pretty", "text", "":
			colored, err := useColor(cmd, os.Stdout)
			if err != nil {
				return err
			}
			return info.Write(cmd.OutOrStdout(), colored)
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	},
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}
