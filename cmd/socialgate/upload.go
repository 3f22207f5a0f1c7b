package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abdulachik/socialgate/internal/social"
)

var (
	uploadMIMEType  string
	uploadResumeKey string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <location>",
	Short: "Upload media without publishing it",
	Long: `Run a chunked media upload and print the platform's media reference,
which can be attached to later posts. Supported on twitter, linkedin and
youtube.

With --resume-key, progress is checkpointed in the store and a repeated
run with the same key continues where the previous one stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadMIMEType, "type", "", "Override the detected MIME type")
	uploadCmd.Flags().StringVar(&uploadResumeKey, "resume-key", "", "Checkpoint key for resumable uploads")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	uploader, err := s.app.Registry.Uploader(s.platform)
	if err != nil {
		return err
	}

	obj, err := s.app.Media.Open(ctx, args[0])
	if err != nil {
		return fmt.Errorf("open media: %w", err)
	}
	defer obj.Close()

	mimeType := obj.MIMEType
	if uploadMIMEType != "" {
		mimeType = uploadMIMEType
	}

	slog.Info("uploading media", "platform", s.platform, "size", obj.Size, "type", mimeType)
	ref, err := uploader.UploadMedia(ctx, s.cred, social.Media{
		Reader:    obj,
		Size:      obj.Size,
		MIMEType:  mimeType,
		Filename:  obj.Name,
		ResumeKey: uploadResumeKey,
	})
	if err != nil {
		return err
	}

	return render(cmd, map[string]any{"platform": s.platform, "media_id": ref, "size": obj.Size}, func(w io.Writer) {
		fmt.Fprintln(w, ref)
	})
}
