package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gptchat/chatlist"
	"github.com/xiaot623/gptchat/client"
	"github.com/xiaot623/gptchat/domain"
)

func (a *app) newThreadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Manage conversation threads",
	}
	cmd.AddCommand(
		a.newThreadsListCmd(),
		a.newThreadsCreateCmd(),
		a.newThreadsDeleteCmd(),
		a.newThreadsShowCmd(),
	)
	return cmd
}

// chatList builds a chat list backed by the local cache when available.
func (a *app) chatList() (*chatlist.List, func(), error) {
	c, err := a.client()
	if err != nil {
		return nil, nil, err
	}
	var opts []chatlist.Option
	cache, closeCache := a.cache(c.Session())
	if cache != nil {
		opts = append(opts, chatlist.WithSnapshot(cache))
	}
	return chatlist.New(c, a.logger, opts...), closeCache, nil
}

func (a *app) newThreadsListCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, closeCache, err := a.chatList()
			if err != nil {
				return err
			}
			defer closeCache()

			if offline {
				err = list.LoadCached(cmd.Context())
			} else {
				err = list.Load(cmd.Context())
			}
			if err != nil {
				return err
			}
			printChats(cmd.OutOrStdout(), list.Chats())
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "show the cached list without contacting the backend")
	return cmd
}

func (a *app) newThreadsCreateCmd() *cobra.Command {
	var assistantID, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, closeCache, err := a.chatList()
			if err != nil {
				return err
			}
			defer closeCache()

			// Load first so the cached snapshot keeps the other threads.
			if err := list.Load(cmd.Context()); err != nil {
				return err
			}
			chat, err := list.Create(cmd.Context(), name, assistantID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), chat.ThreadID)
			return nil
		},
	}
	cmd.Flags().StringVar(&assistantID, "assistant", "", "assistant id")
	cmd.Flags().StringVar(&name, "name", "New chat", "thread name")
	_ = cmd.MarkFlagRequired("assistant")
	return cmd
}

func (a *app) newThreadsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <thread-id>",
		Short: "Delete a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, closeCache, err := a.chatList()
			if err != nil {
				return err
			}
			defer closeCache()

			if err := list.Load(cmd.Context()); err != nil {
				return err
			}
			if err := list.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) newThreadsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Show a thread with its assistant and state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			threadID := args[0]

			var (
				chat      *domain.Chat
				assistant *domain.Assistant
				state     *domain.ThreadState
			)
			eg, egCtx := errgroup.WithContext(cmd.Context())
			eg.Go(func() error {
				chat = c.GetThread(egCtx, threadID)
				if chat != nil {
					assistant = c.GetAssistant(egCtx, chat.AssistantID)
				}
				return nil
			})
			eg.Go(func() error {
				var err error
				state, err = c.GetThreadState(egCtx, threadID)
				return err
			})
			if err := eg.Wait(); err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("thread %s not found", threadID)
				}
				return err
			}
			if chat == nil {
				return fmt.Errorf("thread %s not found", threadID)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Thread:    %s\n", chat.ThreadID)
			fmt.Fprintf(out, "Name:      %s\n", chat.Name)
			fmt.Fprintf(out, "Updated:   %s\n", formatTime(chat.UpdatedAt))
			if assistant != nil {
				fmt.Fprintf(out, "Assistant: %s (%s)\n", assistant.Name, assistant.AssistantID)
			} else {
				a.logger.Debug("assistant unavailable", zap.String("assistant_id", chat.AssistantID))
				fmt.Fprintf(out, "Assistant: %s\n", chat.AssistantID)
			}
			fmt.Fprintf(out, "Messages:  %d\n", len(state.Messages))
			if len(state.Next) > 0 {
				fmt.Fprintf(out, "Next:      %v\n", state.Next)
			}
			return nil
		},
	}
}

func printChats(w io.Writer, chats []domain.Chat) {
	if len(chats) == 0 {
		fmt.Fprintln(w, "No threads.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "THREAD\tNAME\tASSISTANT\tUPDATED")
	for _, c := range chats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ThreadID, c.Name, c.AssistantID, formatTime(c.UpdatedAt))
	}
	_ = tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
