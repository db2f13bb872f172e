package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/messages"
)

func (a *app) newMessagesCmd() *cobra.Command {
	var offline, render bool
	cmd := &cobra.Command{
		Use:   "messages <thread-id>",
		Short: "Print the messages of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			cache, closeCache := a.cache(c.Session())
			defer closeCache()

			var msgs []domain.Message
			if offline {
				if cache == nil {
					return fmt.Errorf("no local cache configured")
				}
				msgs, err = cache.GetMessages(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to read cached messages: %w", err)
				}
			} else {
				var opts []messages.Option
				if cache != nil {
					opts = append(opts, messages.WithSnapshot(cache))
				}
				sync := messages.NewSync(c, a.logger, opts...)
				if err := sync.SetThread(cmd.Context(), args[0]); err != nil {
					return err
				}
				msgs = sync.Messages()
			}

			if !render {
				printMessages(cmd.OutOrStdout(), msgs)
				return nil
			}
			var buf bytes.Buffer
			printMessages(&buf, msgs)
			_, err = io.WriteString(cmd.OutOrStdout(), a.renderMarkdown(buf.String()))
			return err
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "show cached messages without contacting the backend")
	cmd.Flags().BoolVar(&render, "render", false, "render message content as markdown")
	return cmd
}

func printMessages(w io.Writer, msgs []domain.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages.")
		return
	}
	for _, m := range msgs {
		fmt.Fprintf(w, "[%s] %s\n%s\n\n", speaker(m), m.ID, strings.TrimSpace(m.Content))
	}
}

func speaker(m domain.Message) string {
	switch {
	case m.Name != "":
		return m.Name
	case m.Type != "":
		return m.Type
	case m.Role != "":
		return m.Role
	}
	return "unknown"
}
