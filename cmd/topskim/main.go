package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DickyChant/topskim/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "topskim",
		Short: "Dilepton skim of heavy-ion and pp collision events",
		Long: `topskim reconstructs leptons and jets from forest-style event records,
selects dilepton events, writes one reduced record per selected event and
fills the categorized histograms and fiducial counters used for the
cross-section normalization.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newMigrateCmd(), newRunsCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "topskim", version.String())
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Printf("topskim: %v", err)
		stop()
		os.Exit(1)
	}
}
