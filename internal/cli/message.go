package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cojourney/cjagent/internal/memory"
)

var (
	messageUser   string
	messageRoom   string
	messageText   string
	messageAction string
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Send one message to the agent and print the transcript",
	RunE:  runMessage,
}

func init() {
	messageCmd.Flags().StringVarP(&messageUser, "user", "u", "", "Sender user ID")
	messageCmd.Flags().StringVarP(&messageRoom, "room", "r", "", "Room ID")
	messageCmd.Flags().StringVarP(&messageText, "message", "m", "", "Message text")
	messageCmd.Flags().StringVarP(&messageAction, "action", "a", "", "Optional action tag")
	_ = messageCmd.MarkFlagRequired("user")
	_ = messageCmd.MarkFlagRequired("room")
	_ = messageCmd.MarkFlagRequired("message")
}

func runMessage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	msg := &memory.Message{
		UserID:  messageUser,
		RoomID:  messageRoom,
		Content: memory.Content{Text: messageText, Action: messageAction},
	}
	out, err := a.runtime.Receive(ctx, msg)
	if err != nil {
		return err
	}
	if out.Continuation != nil {
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if err := out.Continuation.Wait(waitCtx); err != nil {
			return fmt.Errorf("wait for continuation: %w", err)
		}
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %v\n", color.New(color.Faint).Sprint("phases:"), out.Phases)
	msgs, err := a.runtime.Messages().GetMemories(ctx, memory.Query{RoomID: messageRoom, Count: a.cfg.Agent.RecentMessageCount})
	if err != nil {
		return err
	}
	for _, m := range msgs {
		who := m.UserID
		if who == a.cfg.Agent.ID {
			who = color.GreenString(a.cfg.Agent.Name)
		}
		line := fmt.Sprintf("%s: %s", who, m.Content.Text)
		if m.Content.Action != "" {
			line += color.YellowString(" (%s)", m.Content.Action)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
