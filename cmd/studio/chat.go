package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaystattoos/studio/internal/flow"
	"github.com/jaystattoos/studio/internal/notify"
)

func newChatCmd() *cobra.Command {
	var notifyURL string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run the booking chat in the terminal",
		Long: `Run the booking chat in the terminal. Completed requests are posted to
a running server's /api/notify when --notify-url is set, and logged otherwise.
Type "exit" or send EOF to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if notifyURL != "" {
				cfg.NotifyURL = notifyURL
			}
			loc, err := cfg.location()
			if err != nil {
				return err
			}

			var gateway notify.Gateway = notify.NewLogGateway(loc)
			if cfg.NotifyURL != "" {
				gateway = notify.NewHTTPGateway(cfg.NotifyURL, nil)
			}
			dispatcher := notify.NewDispatcher(gateway,
				notify.WithMaxAttempts(cfg.NotifyAttempts),
				notify.WithAttemptTimeout(cfg.NotifyTimeout))
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
				defer cancel()
				_ = dispatcher.Close(ctx)
			}()

			chat := flow.NewConversations(
				flow.NewIntake(flow.WithStudioPhone(cfg.StudioPhone)),
				flow.NewInMemoryStateManager(flow.WithSessionTTL(24*time.Hour)),
				dispatcher)
			return runChat(cmd, chat)
		},
	}
	cmd.Flags().StringVar(&notifyURL, "notify-url", "", "notification endpoint, e.g. http://localhost:3000/api/notify (overrides NOTIFY_URL)")
	return cmd
}

func runChat(cmd *cobra.Command, chat *flow.Conversations) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	reply, err := chat.Start(ctx)
	if err != nil {
		return err
	}
	printReplies(cmd, reply.Replies)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		reply, err = chat.Handle(ctx, reply.SessionID, line)
		if err != nil {
			return err
		}
		printReplies(cmd, reply.Replies)
	}
	fmt.Fprintln(out)
	if err := scanner.Err(); err != nil {
		return err
	}
	return chat.End(ctx, reply.SessionID)
}

func printReplies(cmd *cobra.Command, replies []string) {
	for _, r := range replies {
		fmt.Fprintln(cmd.OutOrStdout(), r)
	}
}
