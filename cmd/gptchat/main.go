// Package main provides the gptchat command line client for an OpenGPTs
// backend.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/client"
	"github.com/xiaot623/gptchat/config"
	"github.com/xiaot623/gptchat/identity"
	"github.com/xiaot623/gptchat/logging"
	"github.com/xiaot623/gptchat/store"
)

// app carries the state shared by every command of one invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	verbose bool
	now     func() time.Time
}

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg, logger: zap.NewNop(), now: time.Now}

	root := &cobra.Command{
		Use:           "gptchat",
		Short:         "Chat with OpenGPTs assistants from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := a.cfg.LogLevel
			if a.verbose {
				level = "debug"
			}
			logger, err := logging.New(level)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.BaseURL, "url", cfg.BaseURL, "backend base URL")
	flags.StringVarP(&a.cfg.UserID, "user", "u", cfg.UserID, "user id (overrides saved credentials)")
	flags.StringVar(&a.cfg.CredentialsPath, "credentials", cfg.CredentialsPath, "credentials file")
	flags.StringVar(&a.cfg.CacheDBPath, "cache", cfg.CacheDBPath, "local cache database")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.newLoginCmd(),
		a.newThreadsCmd(),
		a.newMessagesCmd(),
		a.newChatCmd(),
		a.newEditCmd(),
		a.newSchemaCmd(),
	)
	return root
}

// session resolves the identity every backend call is made with.
func (a *app) session() (identity.Session, error) {
	s, err := identity.Resolve(a.cfg.UserID, a.cfg.CredentialsPath, a.now())
	if err != nil {
		return identity.Session{}, fmt.Errorf("%w (run `gptchat login <user-id>` or pass --user)", err)
	}
	return s, nil
}

func (a *app) client() (*client.Client, error) {
	s, err := a.session()
	if err != nil {
		return nil, err
	}
	return client.NewClient(a.cfg.BaseURL, s, a.cfg.HTTPTimeout,
		client.WithStreamTimeout(a.cfg.StreamTimeout),
		client.WithLogger(a.logger),
	), nil
}

// cache opens the local cache scoped to the session user. A cache that
// cannot be opened is logged and skipped.
func (a *app) cache(s identity.Session) (*store.UserCache, func()) {
	if a.cfg.CacheDBPath == "" {
		return nil, func() {}
	}
	db, err := store.NewSQLiteStore(a.cfg.CacheDBPath)
	if err != nil {
		a.logger.Warn("local cache unavailable", zap.String("path", a.cfg.CacheDBPath), zap.Error(err))
		return nil, func() {}
	}
	return store.ForUser(db, s.UserID()), func() { _ = db.Close() }
}
