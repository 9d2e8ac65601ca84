package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	internaldb "tallybot/internal/db"
	"tallybot/internal/db/repository"
	adminsvc "tallybot/internal/service/admin"
)

func openStore(dbPath string) (*internaldb.DB, error) {
	return internaldb.Open(dbPath, 2)
}

func newMigrateCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			if err := internaldb.RunMigrations(db.Write); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied to %s\n", *dbPath)
			return nil
		},
	}
}

func newAdminCmd(dbPath, output *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage bot administrators",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add-super <user-id>",
		Short: "Bootstrap or promote a super admin by Telegram user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("user id must be numeric: %w", err)
			}

			db, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			svc := adminsvc.NewService(repository.NewAdminRepo(db.Write, db.Read), logger)
			if err := svc.EnsureSuperAdmin(cmd.Context(), userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Super admin %d ready\n", userID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List bot administrators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			svc := adminsvc.NewService(repository.NewAdminRepo(db.Write, db.Read), logger)
			admins, err := svc.ListAdmins(cmd.Context())
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(cmd, admins)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s  %-24s  %s\n", "USER ID", "USERNAME", "SUPER")
			for _, a := range admins {
				fmt.Fprintf(out, "%-12d  %-24s  %t\n", a.UserID, a.Username, a.IsSuperAdmin)
			}
			return nil
		},
	})

	return cmd
}

func newSyncCmd(host, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <chat-id>",
		Short: "Reconcile one group's counters against the chat platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("chat id must be numeric: %w", err)
			}

			group, err := NewClient(*host).SyncGroup(cmd.Context(), chatID)
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(cmd, group)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %q: %d unique members, peak %d\n",
				group.Title, group.UniqueMemberCount, group.MaxMemberCount)
			return nil
		},
	}
}
