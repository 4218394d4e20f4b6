package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"winter/internal/prof"
)

func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().String("cpu-profile", "", "write a CPU profile to this file")
	cmd.Flags().String("mem-profile", "", "write a heap profile to this file on exit")
	cmd.Flags().String("runtime-trace", "", "write a runtime trace to this file")
}

// setupProfiling starts the profilers named by the flags. The returned
// cleanup is safe to call more than once.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	opts := prof.Options{
		CPU:   stringFlag(cmd, "cpu-profile", ""),
		Mem:   stringFlag(cmd, "mem-profile", ""),
		Trace: stringFlag(cmd, "runtime-trace", ""),
	}
	if !opts.Enabled() {
		return func() {}, nil
	}
	s, err := prof.Start(opts)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := s.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to write profile: %v\n", err)
		}
	}, nil
}
