// Command kam-sample writes synthetic performance workbooks and replays
// them against a running KAM server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/kam/internal/sampledata"
	"github.com/okian/kam/pkg/logger"
)

// Default configuration constants.
const (
	defaultRows    = 500
	defaultPOCs    = 8
	defaultTimeout = 30 * time.Second
	defaultRunTime = 10 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:          "kam-sample",
		Short:        "Generate and import sample KAM performance sheets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			if verbose {
				return logger.SetLevelString("debug")
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	root.AddCommand(newGenerateCmd(), newUploadCmd(&verbose))
	return root
}

func newGenerateCmd() *cobra.Command {
	var (
		rows, pocs int
		seed       uint64
		out        string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a sample workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			grid, err := sampledata.Generate(rows, pocs, seed, time.Now())
			if err != nil {
				return err
			}
			book, err := sampledata.Workbook(grid)
			if err != nil {
				return err
			}
			if out == "" {
				out = sampledata.DefaultOutput(time.Now())
			}
			if err := sampledata.SaveFile(out, book); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows (%d underperforming) to %s\n",
				len(grid)-1, sampledata.Underperforming(grid), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", defaultRows, "Number of data rows")
	cmd.Flags().IntVar(&pocs, "pocs", defaultPOCs, "Number of distinct POCs")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible sheets (0 picks one)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: kam_sample_TIMESTAMP.xlsx)")
	return cmd
}

func newUploadCmd(verbose *bool) *cobra.Command {
	cfg := &sampledata.Config{}
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Import a generated sheet into a running server and verify it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Verbose = *verbose
			cfg.Logger = logger.Get()
			if cfg.Password == "" {
				cfg.Password = os.Getenv("KAM_AUTH__ADMIN_PASSWORD")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultRunTime)
			defer cancel()

			stats, err := sampledata.Run(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records, checked %d profiles in %s\n",
				stats.RecordsImported, stats.ProfilesChecked, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.StringVar(&cfg.Login, "login", "admin", "Admin username or email")
	f.StringVar(&cfg.Password, "password", "", "Admin password (default: $KAM_AUTH__ADMIN_PASSWORD)")
	f.IntVar(&cfg.Rows, "rows", defaultRows, "Number of data rows")
	f.IntVar(&cfg.POCs, "pocs", defaultPOCs, "Number of distinct POCs")
	f.Uint64Var(&cfg.Seed, "seed", 0, "Seed for reproducible sheets (0 picks one)")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "Concurrent profile checks")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.StringVarP(&cfg.Output, "output", "o", "", "Keep the uploaded workbook at this path")
	return cmd
}
