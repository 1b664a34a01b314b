package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildRootCmd(o *Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "ggufpub",
		Short:         "Quantize a GGUF model, document it and publish it to the hub",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVarP(&o.ConfigPath, "config", "c", o.ConfigPath, "Job config file (.yaml, .json, .toml); defaults GGUFPUB_CONFIG")
	pf.StringVarP(&o.Profile, "profile", "p", o.Profile, "Built-in profile; defaults GGUFPUB_PROFILE or the config file")
	pf.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug|info|warn|error")
	pf.StringVar(&o.LogFormat, "log-format", o.LogFormat, "Log format: console|json")
	pf.StringVar(&o.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the command")
	pf.StringVar(&o.MetricsPushURL, "metrics-push-url", "", "Push metrics to this Pushgateway after the command")
	pf.StringVar(&o.MetricsAddr, "metrics-addr", "", "Serve /metrics, /status and /healthz on this address while the command runs")
	pf.StringSliceVar(&o.Levels, "levels", nil, "Quantization levels, comma separated (overrides profile and config)")
	pf.StringVar(&o.Owner, "owner", "", "Hub account or organization; defaults GGUFPUB_OWNER")
	pf.StringVar(&o.RepoID, "repo", "", "Target repository owner/name")
	pf.StringVar(&o.OutputDir, "output-dir", "", "Output directory; defaults GGUFPUB_OUTPUT_DIR or <model>-GGUF")
	pf.StringVar(&o.WorkDir, "work-dir", "", "Directory searched for the source weights")

	addConfirmFlags := func(c *cobra.Command) {
		c.Flags().BoolVarP(&o.Yes, "yes", "y", false, "Upload without asking (GGUFPUB_YES=1 does the same unless --no is given)")
		c.Flags().BoolVar(&o.No, "no", false, "Never upload; stop after listing the files")
	}
	addJobsFlag := func(c *cobra.Command) {
		c.Flags().IntVarP(&o.Jobs, "jobs", "j", o.Jobs, "Quantize this many levels in parallel; defaults GGUFPUB_JOBS or 1")
	}

	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Quantize, checksum, document and publish",
		Example: "  ggufpub run --profile llama-3.2-1b --owner acme\n  ggufpub run -c job.yaml --yes -j 2",
		Args:    noArgs,
		RunE:    func(cmd *cobra.Command, args []string) error { return fnRun(cmd.Context(), o) },
	}
	addConfirmFlags(runCmd)
	addJobsFlag(runCmd)
	runCmd.Flags().BoolVar(&o.SkipPublish, "skip-publish", false, "Stop after writing the documents")

	quantizeCmd := &cobra.Command{
		Use:   "quantize",
		Short: "Produce the configured quantization levels",
		Args:  noArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return fnQuantize(cmd.Context(), o) },
	}
	addJobsFlag(quantizeCmd)

	checksumCmd := &cobra.Command{
		Use:   "checksum",
		Short: "Rewrite SHA256SUMS for the output directory",
		Args:  noArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return fnChecksum(cmd.Context(), o) },
	}
	checksumCmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Re-hash the files listed in SHA256SUMS",
		Args:  noArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return fnVerify(cmd.Context(), o) },
	})

	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "Regenerate the model cards and generation config",
		Args:  noArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return fnDocs(cmd.Context(), o) },
	}

	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the output directory to the hub",
		Args:  noArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return fnPublish(cmd.Context(), o) },
	}
	addConfirmFlags(publishCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect [file.gguf...]",
		Short: "Show GGUF header metadata (defaults to every artifact in the output directory)",
		RunE:  func(cmd *cobra.Command, args []string) error { return fnInspectCmd(cmd.Context(), o, args) },
	}

	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "List built-in profiles",
		Args:  noArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return fnProfiles(cmd.OutOrStdout()) },
	}

	root.AddCommand(runCmd, quantizeCmd, checksumCmd, docsCmd, publishCmd, inspectCmd, profilesCmd)

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout()) }})
	root.AddCommand(completionCmd)
	return root
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("%s takes no arguments, got %q", cmd.CommandPath(), args)}
	}
	return nil
}
