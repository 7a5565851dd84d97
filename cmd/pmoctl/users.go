package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/account"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage accounts",
}

var setRoleCmd = &cobra.Command{
	Use:     "set-role <email> <role>",
	Short:   "Change an account's role (candidate, employer or admin)",
	Args:    cobra.ExactArgs(2),
	Example: "  pmoctl users set-role ops@pmo.network admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		u, err := account.NewService(a.repos.Accounts, nil).SetRole(cmd.Context(), args[0], domain.Role(args[1]))
		if err != nil {
			return err
		}
		fmt.Println(row("Updated", u.Email))
		fmt.Println(row("Role", u.Role))
		return nil
	},
}

func init() {
	usersCmd.AddCommand(setRoleCmd)
}
