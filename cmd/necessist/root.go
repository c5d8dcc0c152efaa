package main

import (
	"github.com/spf13/cobra"
)

// cliFlags mirrors spec §6's CLI surface: root, timeout, framework,
// verbose, sqlite, plus positional file paths.
type cliFlags struct {
	root      string
	timeout   int
	framework string
	verbose   bool
	sqlite    bool
}

func newRootCommand() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:   "necessist [flags] [files...]",
		Short: "Audit a test suite by mutating and rerunning it",
		Long: `necessist discovers test files, removes candidate spans of source one at
a time, reruns the affected tests, and reports every removal the test
suite failed to catch — a vacuous or under-specified assertion.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.root, "root", "", "project root (default: current directory)")
	f.IntVar(&flags.timeout, "timeout", 0, "per-mutation test deadline in seconds")
	f.StringVar(&flags.framework, "framework", "", `force a specific adapter ("auto" probes by applicability)`)
	f.BoolVar(&flags.verbose, "verbose", false, "debug-level log output")
	f.BoolVar(&flags.sqlite, "sqlite", false, "also persist removals to a SQLite store")

	return cmd
}
