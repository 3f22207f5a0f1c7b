package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abdulachik/socialgate/internal/social"
)

var (
	pageLimit   int
	pageCursor  string
	messageTo   string
	messageText string
	messageURL  string
)

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Read and send direct messages",
	Long:  `Direct messaging is available on facebook, instagram and twitter.`,
}

func pageOptions() social.PageOptions {
	return social.PageOptions{Limit: pageLimit, Cursor: pageCursor}
}

func addPageFlags(cmds ...*cobra.Command) {
	for _, c := range cmds {
		c.Flags().IntVar(&pageLimit, "limit", 0, "Page size, at most 100")
		c.Flags().StringVar(&pageCursor, "cursor", "", "Cursor from a previous page")
	}
}

func printNext(w io.Writer, cursor string) {
	if cursor != "" {
		fmt.Fprintf(w, "\nNext page: --cursor %s\n", cursor)
	}
}

func messenger(cmd *cobra.Command) (*session, social.Messenger, error) {
	s, err := openSession(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	m, err := s.app.Registry.Messenger(s.platform)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, m, nil
}

var messagesConversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, m, err := messenger(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		page, err := m.GetConversations(cmd.Context(), s.cred, pageOptions())
		if err != nil {
			return err
		}
		return render(cmd, page, func(w io.Writer) {
			for _, c := range page.Conversations {
				names := make([]string, 0, len(c.Participants))
				for _, p := range c.Participants {
					names = append(names, displayName(p))
				}
				fmt.Fprintf(w, "%s  %s  unread=%d  %v\n", c.ID, formatTime(c.UpdatedAt), c.UnreadCount, names)
				if c.Snippet != "" {
					fmt.Fprintf(w, "    %s\n", c.Snippet)
				}
			}
			printNext(w, page.NextCursor)
		})
	},
}

var messagesListCmd = &cobra.Command{
	Use:   "list <conversation-id>",
	Short: "List messages in a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, m, err := messenger(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		page, err := m.GetMessages(cmd.Context(), s.cred, args[0], pageOptions())
		if err != nil {
			return err
		}
		return render(cmd, page, func(w io.Writer) {
			for _, msg := range page.Messages {
				fmt.Fprintf(w, "[%s] %s: %s\n", formatTime(msg.CreatedAt), displayName(msg.From), msg.Text)
			}
			printNext(w, page.NextCursor)
		})
	},
}

var messagesSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a direct message",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, m, err := messenger(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		sent, err := m.SendMessage(cmd.Context(), s.cred, social.OutgoingMessage{
			RecipientID: messageTo,
			Text:        messageText,
			MediaURL:    messageURL,
		})
		if err != nil {
			return err
		}
		return render(cmd, sent, func(w io.Writer) { printSent(w, sent) })
	},
}

var messagesReplyCmd = &cobra.Command{
	Use:   "reply <conversation-id>",
	Short: "Reply in a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, m, err := messenger(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		sent, err := m.ReplyToConversation(cmd.Context(), s.cred, args[0], messageText)
		if err != nil {
			return err
		}
		return render(cmd, sent, func(w io.Writer) { printSent(w, sent) })
	},
}

var messagesReadCmd = &cobra.Command{
	Use:   "read <conversation-id>",
	Short: "Mark a conversation as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, m, err := messenger(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := m.MarkConversationAsRead(cmd.Context(), s.cred, args[0]); err != nil {
			return err
		}
		return done(cmd, "marked %s as read", args[0])
	},
}

func init() {
	addPageFlags(messagesConversationsCmd, messagesListCmd)
	messagesSendCmd.Flags().StringVar(&messageTo, "to", "", "Recipient id")
	messagesSendCmd.Flags().StringVar(&messageURL, "media-url", "", "Attach media by public URL")
	for _, c := range []*cobra.Command{messagesSendCmd, messagesReplyCmd} {
		c.Flags().StringVar(&messageText, "text", "", "Message text")
	}

	messagesCmd.AddCommand(messagesConversationsCmd, messagesListCmd, messagesSendCmd, messagesReplyCmd, messagesReadCmd)
	rootCmd.AddCommand(messagesCmd)
}

func displayName(p social.Participant) string {
	switch {
	case p.Username != "":
		return "@" + p.Username
	case p.Name != "":
		return p.Name
	}
	return p.ID
}

func printSent(w io.Writer, m *social.SentMessage) {
	fmt.Fprintf(w, "Sent message %s", m.ID)
	if m.ConversationID != "" {
		fmt.Fprintf(w, " in %s", m.ConversationID)
	}
	fmt.Fprintln(w)
}
