package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abdulachik/socialgate/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Maintain the state store",
}

var storePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired OAuth states and upload checkpoints",
	Long: `Delete expired entries from the sqlite or memory store. Redis expires
keys on its own.`,
	Args: cobra.NoArgs,
	RunE: runStorePurge,
}

func init() {
	storeCmd.AddCommand(storePurgeCmd)
	rootCmd.AddCommand(storeCmd)
}

func runStorePurge(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	purger, ok := a.Store.(store.Purger)
	if !ok {
		slog.Info("store expires entries itself", "driver", a.Config.StoreDriver)
		return done(cmd, "nothing to purge")
	}

	n, err := purger.Purge(cmd.Context())
	if err != nil {
		return fmt.Errorf("purge store: %w", err)
	}
	return render(cmd, map[string]int64{"purged": n}, func(w io.Writer) {
		fmt.Fprintf(w, "purged %d expired entries\n", n)
	})
}
