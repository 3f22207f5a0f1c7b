package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abdulachik/socialgate/internal/health"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the store and every configured credential",
	Long: `Probe the state store and call each platform that has an access token
configured to confirm the credential still works. Exits non-zero when any
component is unhealthy.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	h := a.Check(cmd.Context())

	statuses := h.GetAllStatuses()
	if err := render(cmd, statuses, func(w io.Writer) { printHealth(w, h) }); err != nil {
		return err
	}
	if !h.IsOverallHealthy() {
		return fmt.Errorf("one or more components are unhealthy")
	}
	return nil
}

func printHealth(w io.Writer, h *health.Health) {
	for _, name := range h.Components() {
		s := h.GetStatus(name)
		mark := "ok  "
		if !s.Healthy {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "%s  %-10s %s\n", mark, name, s.Message)
	}
}
