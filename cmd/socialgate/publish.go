package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdulachik/socialgate/internal/social"
)

var (
	publishText        string
	publishTitle       string
	publishMedia       []string
	publishPrivacy     string
	publishTags        []string
	publishURL         string
	publishDescription string
	publishAt          string
	publishLink        string
	publishResumeKey   string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Create or delete posts",
	Long: `Publish text, images, videos and links, schedule posts, or delete them.

Media locations may be local paths, s3://bucket/key URIs or http(s) URLs.

Examples:
  socialgate publish text -p twitter --text "hello"
  socialgate publish video -p youtube --media clip.mp4 --title "Launch" --privacy unlisted
  socialgate publish schedule -p facebook --text "soon" --at 2026-01-02T15:00:00Z`,
}

var publishTextCmd = &cobra.Command{
	Use:   "text",
	Short: "Publish a text post",
	Args:  cobra.NoArgs,
	RunE: withPublisher(func(ctx context.Context, pub social.Publisher, cred social.Credential) (*social.PostResult, error) {
		return pub.PublishText(ctx, cred, social.TextPost{Text: publishText})
	}),
}

var publishImageCmd = &cobra.Command{
	Use:   "image",
	Short: "Publish one or more images",
	Args:  cobra.NoArgs,
	RunE: withPublisher(func(ctx context.Context, pub social.Publisher, cred social.Credential) (*social.PostResult, error) {
		return pub.PublishImage(ctx, cred, mediaPost())
	}),
}

var publishVideoCmd = &cobra.Command{
	Use:   "video",
	Short: "Publish a video",
	Args:  cobra.NoArgs,
	RunE: withPublisher(func(ctx context.Context, pub social.Publisher, cred social.Credential) (*social.PostResult, error) {
		return pub.PublishVideo(ctx, cred, mediaPost())
	}),
}

var publishLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Share a link",
	Args:  cobra.NoArgs,
	RunE: withPublisher(func(ctx context.Context, pub social.Publisher, cred social.Credential) (*social.PostResult, error) {
		return pub.PublishLink(ctx, cred, social.LinkPost{
			Text:        publishText,
			URL:         publishURL,
			Title:       publishTitle,
			Description: publishDescription,
		})
	}),
}

var publishScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule a post for later",
	Args:  cobra.NoArgs,
	RunE: withPublisher(func(ctx context.Context, pub social.Publisher, cred social.Credential) (*social.PostResult, error) {
		if publishAt == "" {
			return nil, fmt.Errorf("--at is required")
		}
		at, err := parseTime(publishAt)
		if err != nil {
			return nil, err
		}
		return pub.SchedulePost(ctx, cred, social.ScheduledPost{
			Text:      publishText,
			Title:     publishTitle,
			Link:      publishLink,
			Media:     mediaList(),
			PublishAt: at,
		})
	}),
}

var publishDeleteCmd = &cobra.Command{
	Use:   "delete <post-id>",
	Short: "Delete a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		pub, err := s.app.Registry.Publisher(s.platform)
		if err != nil {
			return err
		}
		if err := pub.DeletePost(ctx, s.cred, args[0]); err != nil {
			return err
		}
		return done(cmd, "deleted %s post %s", s.platform, args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{publishTextCmd, publishImageCmd, publishVideoCmd, publishLinkCmd, publishScheduleCmd} {
		c.Flags().StringVar(&publishText, "text", "", "Post text or caption")
	}
	for _, c := range []*cobra.Command{publishImageCmd, publishVideoCmd, publishScheduleCmd} {
		c.Flags().StringArrayVar(&publishMedia, "media", nil, "Media location, repeatable")
	}
	for _, c := range []*cobra.Command{publishVideoCmd, publishLinkCmd, publishScheduleCmd} {
		c.Flags().StringVar(&publishTitle, "title", "", "Title (videos and link previews)")
	}
	for _, c := range []*cobra.Command{publishImageCmd, publishVideoCmd} {
		c.Flags().StringVar(&publishPrivacy, "privacy", "", "public, unlisted or private")
		c.Flags().StringSliceVar(&publishTags, "tags", nil, "Comma separated tags")
	}
	publishVideoCmd.Flags().StringVar(&publishResumeKey, "resume-key", "", "Resume an interrupted upload saved under this key")
	publishLinkCmd.Flags().StringVar(&publishURL, "url", "", "Link to share")
	publishLinkCmd.Flags().StringVar(&publishDescription, "description", "", "Link preview description")
	publishScheduleCmd.Flags().StringVar(&publishAt, "at", "", "Publish time, RFC3339")
	publishScheduleCmd.Flags().StringVar(&publishLink, "link", "", "Link to attach")

	publishCmd.AddCommand(publishTextCmd, publishImageCmd, publishVideoCmd, publishLinkCmd, publishScheduleCmd, publishDeleteCmd)
	rootCmd.AddCommand(publishCmd)
}

func mediaList() []social.Media {
	items := make([]social.Media, 0, len(publishMedia))
	for _, loc := range publishMedia {
		items = append(items, social.Media{URL: loc, ResumeKey: publishResumeKey})
	}
	return items
}

func mediaPost() social.MediaPost {
	return social.MediaPost{
		Text:    publishText,
		Title:   publishTitle,
		Media:   mediaList(),
		Privacy: publishPrivacy,
		Tags:    publishTags,
	}
}

type publishFunc func(ctx context.Context, pub social.Publisher, cred social.Credential) (*social.PostResult, error)

func withPublisher(fn publishFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		pub, err := s.app.Registry.Publisher(s.platform)
		if err != nil {
			return err
		}

		slog.Info("publishing", "platform", s.platform, "command", cmd.Name())
		res, err := fn(ctx, pub, s.cred)
		if err != nil {
			return err
		}
		return render(cmd, res, func(w io.Writer) { printPost(w, res) })
	}
}

func printPost(w io.Writer, r *social.PostResult) {
	fmt.Fprintf(w, "Platform: %s\n", r.Platform)
	fmt.Fprintf(w, "ID:       %s\n", r.ID)
	fmt.Fprintf(w, "Status:   %s\n", r.Status)
	if r.URL != "" {
		fmt.Fprintf(w, "URL:      %s\n", r.URL)
	}
	if len(r.MediaIDs) > 0 {
		fmt.Fprintf(w, "Media:    %s\n", strings.Join(r.MediaIDs, ", "))
	}
}
