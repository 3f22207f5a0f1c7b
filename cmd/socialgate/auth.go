package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdulachik/socialgate/internal/app"
	"github.com/abdulachik/socialgate/internal/social"
)

var (
	authState string
	authCode  string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Connect accounts through OAuth",
	Long: `Run the authorization code flow for a platform.

  1. socialgate auth url -p linkedin         # open the printed URL
  2. socialgate auth exchange -p linkedin --state S --code C

The state issued in step 1 is kept in the configured store and expires
after STATE_TTL, so both steps need a persistent store (sqlite or redis).`,
}

func authenticator(cmd *cobra.Command) (*app.App, social.Platform, social.Authenticator, error) {
	p, err := selectedPlatform()
	if err != nil {
		return nil, "", nil, err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return nil, "", nil, err
	}
	auth, err := a.Registry.Authenticator(p)
	if err != nil {
		a.Close()
		return nil, "", nil, fmt.Errorf("validate config: %w", err)
	}
	return a, p, auth, nil
}

var authURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the authorization URL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, p, auth, err := authenticator(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := auth.AuthorizationURL(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd, map[string]string{"platform": string(p), "url": u}, func(w io.Writer) {
			fmt.Fprintln(w, u)
		})
	},
}

var authExchangeCmd = &cobra.Command{
	Use:   "exchange",
	Short: "Trade an authorization code for a credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if authState == "" || authCode == "" {
			return fmt.Errorf("--state and --code are required")
		}
		a, _, auth, err := authenticator(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		cred, err := auth.ExchangeCode(cmd.Context(), authState, authCode)
		if err != nil {
			return err
		}
		return render(cmd, cred, func(w io.Writer) { printCredential(w, cred) })
	},
}

var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the configured credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, p, auth, err := authenticator(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		current := a.Config.Platform(p).Credential(p)
		if current.RefreshToken == "" && current.AccessToken == "" {
			return fmt.Errorf("%s_REFRESH_TOKEN or %s_ACCESS_TOKEN is required", p.EnvPrefix(), p.EnvPrefix())
		}
		cred, err := auth.RefreshCredential(cmd.Context(), current)
		if err != nil {
			return err
		}
		return render(cmd, cred, func(w io.Writer) { printCredential(w, cred) })
	},
}

func init() {
	authExchangeCmd.Flags().StringVar(&authState, "state", "", "State returned to the redirect URL")
	authExchangeCmd.Flags().StringVar(&authCode, "code", "", "Authorization code returned to the redirect URL")

	authCmd.AddCommand(authURLCmd, authExchangeCmd, authRefreshCmd)
	rootCmd.AddCommand(authCmd)
}

// printCredential prints the credential as env lines ready for a .env file.
func printCredential(w io.Writer, c *social.Credential) {
	prefix := c.Platform.EnvPrefix()
	fmt.Fprintf(w, "%s_ACCESS_TOKEN=%s\n", prefix, c.AccessToken)
	if c.RefreshToken != "" {
		fmt.Fprintf(w, "%s_REFRESH_TOKEN=%s\n", prefix, c.RefreshToken)
	}
	if c.AccountID != "" {
		fmt.Fprintf(w, "%s_ACCOUNT_ID=%s\n", prefix, c.AccountID)
	}
	if !c.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "# expires %s (in %s)\n", c.ExpiresAt.Format(time.RFC3339), time.Until(c.ExpiresAt).Round(time.Minute))
	}
	if len(c.Scopes) > 0 {
		fmt.Fprintf(w, "# scopes: %s\n", strings.Join(c.Scopes, " "))
	}
}
