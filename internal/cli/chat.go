package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/matheus3301/vchat/internal/api"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Import scans and sends wait on the daemon longer than plain reads.
const longTimeout = 2 * time.Minute

var (
	startImport   bool
	messagesLimit int
	sendAmount    string
	watchKinds    []string
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, defaultTimeout)
		defer cancel()
		resp, err := daemonClient.Chat.ListConversations(ctx, &api.ListConversationsRequest{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			return outputJSON(out, resp)
		}
		if len(resp.Conversations) == 0 {
			fmt.Fprintln(out, "No conversations. Start one with: vchatctl start <name@>")
			return nil
		}
		for _, c := range resp.Conversations {
			fmt.Fprintln(out, formatConversation(c))
		}
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start <name@>",
	Short: "Start a conversation with a VerusID",
	Long: `Start a conversation with a VerusID that can receive private messages.

With --import, messages that identity sent earlier are scanned from the
wallet and added to the conversation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, longTimeout)
		defer cancel()
		resp, err := daemonClient.Chat.StartChat(ctx, &api.StartChatRequest{Name: args[0], ImportHistory: startImport})
		if err != nil {
			if grpcstatus.Code(err) == codes.NotFound {
				return fmt.Errorf("%s cannot receive private messages: %w", args[0], err)
			}
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			return outputJSON(out, resp)
		}
		fmt.Fprintf(out, "Conversation with %s (%s)\n", resp.Conversation.Name, resp.Conversation.Address)
		if startImport {
			fmt.Fprintf(out, "Imported %d messages\n", resp.Imported)
		}
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <name@>",
	Short: "Focus a conversation, mark it read and show its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, defaultTimeout)
		defer cancel()
		if _, err := daemonClient.Chat.SelectConversation(ctx, &api.SelectConversationRequest{ConversationID: args[0]}); err != nil {
			return err
		}
		return printMessages(cmd, args[0])
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <name@>",
	Short: "Show the messages of a conversation, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printMessages(cmd, args[0])
	},
}

func printMessages(cmd *cobra.Command, conversationID string) error {
	ctx, cancel := withTimeout(cmd, defaultTimeout)
	defer cancel()
	resp, err := daemonClient.Chat.ListMessages(ctx, &api.ListMessagesRequest{ConversationID: conversationID, Limit: messagesLimit})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOut {
		return outputJSON(out, resp)
	}
	for _, m := range resp.Messages {
		fmt.Fprintln(out, formatMessage(m))
	}
	if resp.HasMore {
		fmt.Fprintf(out, "(older messages hidden; raise --limit)\n")
	}
	return nil
}

var sendCmd = &cobra.Command{
	Use:   "send <name@> [text...]",
	Short: "Send a message, optionally with an amount",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, longTimeout)
		defer cancel()
		resp, err := daemonClient.Chat.SendMessage(ctx, &api.SendMessageRequest{
			ConversationID: args[0],
			Text:           strings.Join(args[1:], " "),
			Amount:         sendAmount,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			return outputJSON(out, resp)
		}
		if resp.Message.Status == "failed" {
			return fmt.Errorf("message not sent: %s", resp.Message.Error)
		}
		fmt.Fprintf(out, "Sent (%s)\n", resp.Message.TxID)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream daemon events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stream, err := daemonClient.Chat.WatchEvents(ctx, &api.WatchEventsRequest{Namespaces: watchKinds})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for {
			evt, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return nil
				}
				return err
			}
			if err := printEvent(out, evt); err != nil {
				return err
			}
		}
	},
}

func printEvent(out io.Writer, evt *api.EventEnvelope) error {
	if jsonOut {
		return outputJSON(out, evt)
	}
	at := time.UnixMilli(evt.OccurredAtUnixMs).Local().Format("15:04:05")
	_, err := fmt.Fprintf(out, "%s  %-24s %s\n", at, evt.Kind, sanitizeForTerminal(string(evt.Payload)))
	return err
}

func init() {
	startCmd.Flags().BoolVar(&startImport, "import", false, "import earlier messages from this identity")
	openCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 50, "max messages")
	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 50, "max messages")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "VRSC amount to send with the message")
	watchCmd.Flags().StringSliceVar(&watchKinds, "kinds", nil, "event kind prefixes, e.g. message.,sync.")
}
