package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abdulachik/socialgate/internal/social"
)

var (
	metricsSince  string
	metricsUntil  string
	metricsMetric string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Read account and post statistics",
}

var metricsAccountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show account level metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		since, err := parseTime(metricsSince)
		if err != nil {
			return err
		}
		until, err := parseTime(metricsUntil)
		if err != nil {
			return err
		}

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		mp, err := s.app.Registry.Metrics(s.platform)
		if err != nil {
			return err
		}
		m, err := mp.GetAccountMetrics(ctx, s.cred, social.MetricsQuery{Since: since, Until: until})
		if err != nil {
			return err
		}
		return render(cmd, m, func(w io.Writer) {
			fmt.Fprintf(w, "=== %s account %s ===\n", m.Platform, m.AccountID)
			fmt.Fprintf(w, "Followers:   %d\n", m.Followers)
			fmt.Fprintf(w, "Following:   %d\n", m.Following)
			fmt.Fprintf(w, "Posts:       %d\n", m.Posts)
			fmt.Fprintf(w, "Impressions: %d\n", m.Impressions)
			fmt.Fprintf(w, "Reach:       %d\n", m.Reach)
			fmt.Fprintf(w, "Engagement:  %d\n", m.Engagement)
			fmt.Fprintf(w, "Views:       %d\n", m.Views)
			printCounts(w, m.Extra)
		})
	},
}

var metricsPostCmd = &cobra.Command{
	Use:   "post <post-id>",
	Short: "Show metrics for one post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		mp, err := s.app.Registry.Metrics(s.platform)
		if err != nil {
			return err
		}
		m, err := mp.GetPostMetrics(ctx, s.cred, args[0])
		if err != nil {
			return err
		}
		return render(cmd, m, func(w io.Writer) {
			fmt.Fprintf(w, "=== %s post %s ===\n", m.Platform, m.PostID)
			fmt.Fprintf(w, "Likes:       %d\n", m.Likes)
			fmt.Fprintf(w, "Comments:    %d\n", m.Comments)
			fmt.Fprintf(w, "Shares:      %d\n", m.Shares)
			fmt.Fprintf(w, "Views:       %d\n", m.Views)
			fmt.Fprintf(w, "Impressions: %d\n", m.Impressions)
			fmt.Fprintf(w, "Reach:       %d\n", m.Reach)
			fmt.Fprintf(w, "Saves:       %d\n", m.Saves)
			fmt.Fprintf(w, "Clicks:      %d\n", m.Clicks)
			printCounts(w, m.Extra)
		})
	},
}

var metricsDemographicsCmd = &cobra.Command{
	Use:   "demographics",
	Short: "Show the audience breakdown",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		mp, err := s.app.Registry.Metrics(s.platform)
		if err != nil {
			return err
		}
		d, err := mp.GetAudienceDemographics(ctx, s.cred)
		if err != nil {
			return err
		}
		return render(cmd, d, func(w io.Writer) {
			fmt.Fprintf(w, "=== %s audience %s ===\n", d.Platform, d.AccountID)
			printBreakdown(w, "Age", d.Age)
			printBreakdown(w, "Gender", d.Gender)
			printBreakdown(w, "Country", d.Country)
			printBreakdown(w, "City", d.City)
			for _, name := range sortedKeys(d.Extra) {
				printBreakdown(w, name, d.Extra[name])
			}
		})
	},
}

var metricsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a metric over time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		since, err := parseTime(metricsSince)
		if err != nil {
			return err
		}
		until, err := parseTime(metricsUntil)
		if err != nil {
			return err
		}

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		mp, err := s.app.Registry.Metrics(s.platform)
		if err != nil {
			return err
		}
		points, err := mp.GetHistoricalData(ctx, s.cred, social.HistoryQuery{Metric: metricsMetric, Since: since, Until: until})
		if err != nil {
			return err
		}
		return render(cmd, points, func(w io.Writer) {
			for _, p := range points {
				fmt.Fprintf(w, "%s  %s  %g\n", p.Time.Format("2006-01-02"), p.Metric, p.Value)
			}
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{metricsAccountCmd, metricsHistoryCmd} {
		c.Flags().StringVar(&metricsSince, "since", "", "Start of the range, RFC3339 or YYYY-MM-DD")
		c.Flags().StringVar(&metricsUntil, "until", "", "End of the range, RFC3339 or YYYY-MM-DD")
	}
	metricsHistoryCmd.Flags().StringVar(&metricsMetric, "metric", "", "Metric name, platform specific")

	metricsCmd.AddCommand(metricsAccountCmd, metricsPostCmd, metricsDemographicsCmd, metricsHistoryCmd)
	rootCmd.AddCommand(metricsCmd)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printCounts(w io.Writer, extra map[string]int64) {
	for _, k := range sortedKeys(extra) {
		fmt.Fprintf(w, "  %s: %d\n", k, extra[k])
	}
}

func printBreakdown(w io.Writer, name string, values map[string]float64) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", name)
	for _, k := range sortedKeys(values) {
		fmt.Fprintf(w, "  %s: %g\n", k, values[k])
	}
}
