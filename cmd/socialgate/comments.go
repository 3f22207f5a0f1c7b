package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdulachik/socialgate/internal/social"
)

var (
	commentText     string
	commentReaction string
)

var commentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Read and moderate comments",
}

func commenter(cmd *cobra.Command) (*session, social.CommentManager, error) {
	s, err := openSession(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	c, err := s.app.Registry.Comments(s.platform)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, c, nil
}

func renderComments(cmd *cobra.Command, page *social.CommentPage) error {
	return render(cmd, page, func(w io.Writer) {
		for _, c := range page.Comments {
			printComment(w, c)
		}
		printNext(w, page.NextCursor)
	})
}

func printComment(w io.Writer, c social.Comment) {
	var flags []string
	if c.Hidden {
		flags = append(flags, "hidden")
	}
	if c.ReplyCount > 0 {
		flags = append(flags, fmt.Sprintf("%d replies", c.ReplyCount))
	}
	if c.LikeCount > 0 {
		flags = append(flags, fmt.Sprintf("%d likes", c.LikeCount))
	}
	fmt.Fprintf(w, "%s  %s  %s", c.ID, formatTime(c.CreatedAt), displayName(c.Author))
	if len(flags) > 0 {
		fmt.Fprintf(w, "  (%s)", strings.Join(flags, ", "))
	}
	fmt.Fprintf(w, "\n    %s\n", c.Text)
}

var commentsListCmd = &cobra.Command{
	Use:   "list <post-id>",
	Short: "List top level comments on a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, c, err := commenter(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		page, err := c.GetComments(cmd.Context(), s.cred, args[0], pageOptions())
		if err != nil {
			return err
		}
		return renderComments(cmd, page)
	},
}

var commentsRepliesCmd = &cobra.Command{
	Use:   "replies <comment-id>",
	Short: "List replies to a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, c, err := commenter(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		page, err := c.GetCommentReplies(cmd.Context(), s.cred, args[0], pageOptions())
		if err != nil {
			return err
		}
		return renderComments(cmd, page)
	},
}

var commentsPostCmd = &cobra.Command{
	Use:   "post <post-id>",
	Short: "Comment on a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, c, err := commenter(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		comment, err := c.PostComment(cmd.Context(), s.cred, args[0], commentText)
		if err != nil {
			return err
		}
		return render(cmd, comment, func(w io.Writer) { printComment(w, *comment) })
	},
}

var commentsReplyCmd = &cobra.Command{
	Use:   "reply <comment-id>",
	Short: "Reply to a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, c, err := commenter(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		comment, err := c.ReplyToComment(cmd.Context(), s.cred, args[0], commentText)
		if err != nil {
			return err
		}
		return render(cmd, comment, func(w io.Writer) { printComment(w, *comment) })
	},
}

var commentsReactCmd = &cobra.Command{
	Use:   "react <comment-id>",
	Short: "React to a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, c, err := commenter(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := c.ReactToComment(cmd.Context(), s.cred, args[0], commentReaction); err != nil {
			return err
		}
		return done(cmd, "reacted %s to %s", commentReaction, args[0])
	},
}

var commentsUnreactCmd = &cobra.Command{
	Use:   "unreact <comment-id>",
	Short: "Remove a reaction from a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, c, err := commenter(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := c.RemoveCommentReaction(cmd.Context(), s.cred, args[0], commentReaction); err != nil {
			return err
		}
		return done(cmd, "removed %s reaction from %s", commentReaction, args[0])
	},
}

type moderateFunc func(ctx context.Context, c social.CommentManager, cred social.Credential, id string) error

// moderation builds the delete, hide and unhide commands.
func moderation(use, short, verb string, fn moderateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <comment-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, c, err := commenter(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := fn(cmd.Context(), c, s.cred, args[0]); err != nil {
				return err
			}
			return done(cmd, "%s comment %s", verb, args[0])
		},
	}
}

var commentsDeleteCmd = moderation("delete", "Delete a comment", "deleted",
	func(ctx context.Context, c social.CommentManager, cred social.Credential, id string) error {
		return c.DeleteComment(ctx, cred, id)
	})

var commentsHideCmd = moderation("hide", "Hide a comment from the public", "hid",
	func(ctx context.Context, c social.CommentManager, cred social.Credential, id string) error {
		return c.HideComment(ctx, cred, id)
	})

var commentsUnhideCmd = moderation("unhide", "Make a hidden comment visible again", "unhid",
	func(ctx context.Context, c social.CommentManager, cred social.Credential, id string) error {
		return c.UnhideComment(ctx, cred, id)
	})

func init() {
	addPageFlags(commentsListCmd, commentsRepliesCmd)
	for _, c := range []*cobra.Command{commentsPostCmd, commentsReplyCmd} {
		c.Flags().StringVar(&commentText, "text", "", "Comment text")
	}
	for _, c := range []*cobra.Command{commentsReactCmd, commentsUnreactCmd} {
		c.Flags().StringVar(&commentReaction, "reaction", social.ReactionLike, "Reaction type")
	}

	commentsCmd.AddCommand(
		commentsListCmd, commentsRepliesCmd, commentsPostCmd, commentsReplyCmd,
		commentsReactCmd, commentsUnreactCmd, commentsDeleteCmd, commentsHideCmd, commentsUnhideCmd,
	)
	rootCmd.AddCommand(commentsCmd)
}
