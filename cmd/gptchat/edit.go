package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/editing"
	"github.com/xiaot623/gptchat/messages"
)

func (a *app) newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <thread-id> <message-id> <content>",
		Short: "Replace the content of a message",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			threadID, messageID, content := args[0], args[1], args[2]

			c, err := a.client()
			if err != nil {
				return err
			}
			sync := messages.NewSync(c, a.logger)
			if err := sync.SetThread(cmd.Context(), threadID); err != nil {
				return err
			}

			editor := editing.NewEditor(threadID, c, func() {
				if err := sync.Refresh(cmd.Context()); err != nil {
					a.logger.Warn("failed to refresh thread", zap.String("thread_id", threadID), zap.Error(err))
				}
			}, a.logger)

			found := false
			for _, m := range sync.Messages() {
				if m.ID == messageID {
					m.Content = content
					editor.Record(m)
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("message %s not found in thread %s", messageID, threadID)
			}

			commit := editor.Commit()
			if err := commit(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", messageID)
			return nil
		},
	}
}
