package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/client"
	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/messages"
	"github.com/xiaot623/gptchat/stream"
)

func (a *app) newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <thread-id> [text...]",
		Short: "Send a message and stream the reply",
		Long: `Sends text to the thread's assistant and prints the reply as it streams.
Without text, reads one message per line from stdin until EOF or /quit.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			c, err := a.client()
			if err != nil {
				return err
			}
			cache, closeCache := a.cache(c.Session())
			defer closeCache()

			var snap messages.Snapshotter
			if cache != nil {
				snap = cache
			}
			session := a.newChatSession(ctx, c, snap, cmd.OutOrStdout())
			if err := session.sync.SetThread(ctx, args[0]); err != nil {
				return err
			}

			if len(args) > 1 {
				return session.send(ctx, strings.Join(args[1:], " "))
			}
			return session.repl(ctx, cmd.InOrStdin())
		},
	}
}

// chatSession drives one stream per message and folds it into the thread's
// messages once it finishes.
type chatSession struct {
	logger  *zap.Logger
	out     io.Writer
	sync    *messages.Sync
	stream  *stream.Stream
	printer *replyPrinter
}

func (a *app) newChatSession(ctx context.Context, c *client.Client, cache messages.Snapshotter, out io.Writer) *chatSession {
	s := &chatSession{logger: a.logger, out: out, printer: newReplyPrinter(out)}

	opts := []messages.Option{messages.WithStopStream(func(clear bool) { s.stream.Stop(clear) })}
	if cache != nil {
		opts = append(opts, messages.WithSnapshot(cache))
	}
	s.sync = messages.NewSync(c, a.logger, opts...)
	s.stream = stream.New(c, a.logger, stream.WithOnChange(func(st *domain.StreamState) {
		s.printer.update(st)
		if err := s.sync.ObserveStream(ctx, st); err != nil {
			s.logger.Warn("failed to refresh thread after stream", zap.Error(err))
		}
	}))
	return s
}

func (s *chatSession) send(ctx context.Context, text string) error {
	s.printer.reset()
	err := s.stream.Start(ctx, domain.RunRequest{
		ThreadID: s.sync.ThreadID(),
		Input: []domain.Message{{
			ID:      "human-" + uuid.NewString(),
			Type:    domain.MessageTypeHuman,
			Content: text,
		}},
	})
	if err != nil {
		return err
	}
	s.stream.Wait()
	fmt.Fprintln(s.out)

	if last := s.printer.last(); last != nil && last.Status == domain.StreamStatusError {
		return last.Err
	}
	return nil
}

func (s *chatSession) repl(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "Type a message and press Enter to send.")
	fmt.Fprintln(s.out, "Commands: /quit to exit, /history to reprint the thread")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if ctx.Err() != nil || !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Fprintln(s.out, "Bye!")
			return nil
		case "/history":
			printMessages(s.out, s.sync.Messages())
			continue
		}

		if err := s.send(ctx, input); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

// replyPrinter writes assistant output incrementally as stream states
// arrive.
type replyPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	printed map[string]string
	state   *domain.StreamState
}

func newReplyPrinter(w io.Writer) *replyPrinter {
	return &replyPrinter{w: w, printed: make(map[string]string)}
}

func (p *replyPrinter) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printed = make(map[string]string)
	p.state = nil
}

func (p *replyPrinter) update(st *domain.StreamState) {
	if st == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = st

	for _, m := range st.Messages {
		if m.Type != domain.MessageTypeAI {
			continue
		}
		seen := p.printed[m.ID]
		switch {
		case m.Content == seen:
		case strings.HasPrefix(m.Content, seen):
			fmt.Fprint(p.w, m.Content[len(seen):])
		default:
			fmt.Fprint(p.w, "\n"+m.Content)
		}
		p.printed[m.ID] = m.Content
	}
}

func (p *replyPrinter) last() *domain.StreamState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
