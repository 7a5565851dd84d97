package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmonetwork/pmo-network/internal/service/account"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage verification and password-reset tokens",
}

var purgeTokensCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired tokens and reset tokens used over a day ago",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		n, err := account.NewService(a.repos.Accounts, nil).PurgeTokens(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(row("Tokens purged", n))
		return nil
	},
}

func init() {
	tokensCmd.AddCommand(purgeTokensCmd)
}
