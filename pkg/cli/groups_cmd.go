package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tallybot/internal/db/repository"
	"tallybot/internal/domain"
)

func newGroupsCmd(host, dbPath, output *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Inspect and manage tracked groups",
	}
	cmd.AddCommand(newGroupsListCmd(host, output))
	cmd.AddCommand(newGroupsShowCmd(host, output))
	cmd.AddCommand(newGroupsDeleteCmd(dbPath))
	return cmd
}

func newGroupsListCmd(host, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := NewClient(*host).ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(cmd, groups)
			}
			printGroupTable(cmd, groups)
			return nil
		},
	}
}

func newGroupsShowCmd(host, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <chat-id|title>",
		Short: "Show one group by chat id or title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := NewClient(*host).GetGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if *output == "json" {
				return printJSON(cmd, group)
			}
			printGroupTable(cmd, []GroupView{*group})
			return nil
		},
	}
}

func newGroupsDeleteCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chat-id|title>",
		Short: "Delete a group and its membership ledger from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			repo := repository.NewGroupRepo(db.Write, db.Read)
			group, err := resolveGroup(cmd, repo, args[0])
			if err != nil {
				return err
			}
			if err := repo.Delete(cmd.Context(), group.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted group %q (chat %d) and %d counted members\n",
				group.Title, group.ChatID, group.UniqueMemberCount)
			return nil
		},
	}
}

func resolveGroup(cmd *cobra.Command, repo *repository.GroupRepo, ref string) (*domain.Group, error) {
	if chatID, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return repo.GetByChatID(cmd.Context(), chatID)
	}
	return repo.GetByTitle(cmd.Context(), ref)
}

func printGroupTable(cmd *cobra.Command, groups []GroupView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-12s  %-30s  %8s  %8s  %s\n", "CHAT ID", "TITLE", "UNIQUE", "MAX", "ACTIVE")
	for _, g := range groups {
		title := g.Title
		if len(title) > 30 {
			title = title[:27] + "..."
		}
		fmt.Fprintf(out, "%-12d  %-30s  %8d  %8d  %s\n",
			g.ChatID, title, g.UniqueMemberCount, g.MaxMemberCount,
			strings.ToUpper(strconv.FormatBool(g.IsActive)))
	}
}
