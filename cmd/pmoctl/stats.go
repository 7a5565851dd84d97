package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/account"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show platform totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		st, err := account.NewService(a.repos.Accounts, nil).Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(renderStats(st))
		return nil
	},
}

func renderStats(st *domain.PlatformStats) string {
	roles := make([]string, 0, len(st.Users))
	total := 0
	for r, n := range st.Users {
		roles = append(roles, string(r))
		total += n
	}
	sort.Strings(roles)

	out := titleStyle.Render("PMO Network") + "\n"
	out += row("Users", total) + "\n"
	for _, r := range roles {
		out += row("  "+r, st.Users[domain.Role(r)]) + "\n"
	}
	out += row("Verified", st.VerifiedUsers) + "\n"
	out += row("Open jobs", st.OpenJobs) + "\n"
	out += row("Applications", st.Applications) + "\n"
	out += row("Documents", st.Documents) + "\n"
	out += row("Messages", st.Messages)
	return out
}
