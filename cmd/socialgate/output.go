package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdulachik/socialgate/internal/app"
	"github.com/abdulachik/socialgate/internal/config"
	"github.com/abdulachik/socialgate/internal/social"
)

// session is an opened app plus the platform and credential a command
// works with.
type session struct {
	app      *app.App
	platform social.Platform
	cred     social.Credential
}

func (s *session) Close() error {
	return s.app.Close()
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(ctx, cfg)
}

func selectedPlatform() (social.Platform, error) {
	if platformName == "" {
		return "", fmt.Errorf("--platform is required")
	}
	return social.ParsePlatform(platformName)
}

// openSession resolves --platform and its configured credential.
func openSession(ctx context.Context) (*session, error) {
	p, err := selectedPlatform()
	if err != nil {
		return nil, err
	}
	a, err := openApp(ctx)
	if err != nil {
		return nil, err
	}
	cred, err := a.Registry.Credential(p)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &session{app: a, platform: p, cred: cred}, nil
}

// render prints v as JSON with --json, else calls text.
func render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func done(cmd *cobra.Command, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return render(cmd, map[string]string{"status": "ok", "message": msg}, func(w io.Writer) {
		fmt.Fprintln(w, msg)
	})
}

// parseTime accepts RFC3339 or a bare date.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
