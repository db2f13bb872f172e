package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gptchat/identity"
)

func (a *app) newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <user-id>",
		Short: "Save the user id sent with every request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := identity.Save(a.cfg.CredentialsPath, args[0], identity.DefaultTTL, a.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (until %s)\n",
				creds.UserID, creds.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}
