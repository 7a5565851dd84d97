package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmonetwork/pmo-network/internal/pkg/distlock"
	"github.com/pmonetwork/pmo-network/internal/service/account"
	"github.com/pmonetwork/pmo-network/internal/service/activity"
	"github.com/pmonetwork/pmo-network/internal/service/document"
	"github.com/pmonetwork/pmo-network/internal/storage"
	"github.com/pmonetwork/pmo-network/internal/worker"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run one cleanup cycle now",
	Long: `cleanup purges expired credential tokens, expired document shares and
old activity logs, exactly like one cycle of the worker. It takes the same
advisory lock, so it is skipped while a worker is running a cycle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		ctx := cmd.Context()
		blobs, err := storage.New(ctx, a.cfg.Storage)
		if err != nil {
			return err
		}
		w := worker.NewCleanupWorker(
			account.NewService(a.repos.Accounts, nil),
			document.NewService(a.repos.Documents, blobs, a.repos.Accounts, document.Options{}),
			activity.NewService(a.repos.Activity),
			distlock.NewPGAdvisoryLock(a.db, worker.LockKey()),
			worker.Options{
				BatchSize:         a.cfg.Worker.BatchSize,
				ActivityRetention: a.cfg.Worker.ActivityRetention(),
			},
		)
		res, err := w.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("Cleanup"))
		fmt.Println(row("Tokens", res.Tokens))
		fmt.Println(row("Shares", res.Shares))
		fmt.Println(row("Activity logs", res.Activity))
		return nil
	},
}
