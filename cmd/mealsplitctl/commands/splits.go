package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open splits, or a user's recent splits with --user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if userID != "" {
				splits, err := a.Manager.RecentForUser(cmd.Context(), userID, limit)
				if err != nil {
					return err
				}
				printSplits(cmd.OutOrStdout(), splits)
				return nil
			}

			splits, err := a.Manager.List(cmd.Context(), "")
			if err != nil {
				return err
			}
			printSplits(cmd.OutOrStdout(), splits)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "show splits this user is a member of")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum splits to show with --user")
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <split-id>",
		Short: "Show one split",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			split, err := a.Manager.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSplit(cmd.OutOrStdout(), split)
			return nil
		},
	}
}

func newCompleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <split-id>",
		Short: "Close a split to new members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			split, err := a.Manager.MarkComplete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Split %s closed with %d/%d members\n",
				split.ID, len(split.PeopleJoined), split.PeopleNeeded)
			return nil
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <split-id>",
		Short: "Delete a split",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Manager.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Split %s deleted\n", args[0])
			return nil
		},
	}
}

func newLeaveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "leave <split-id> <user-id>",
		Short: "Remove a user from a split",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Manager.Leave(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case !result.Removed:
				fmt.Fprintf(out, "User %s was not a member of split %s\n", args[1], args[0])
			case result.SplitDeleted:
				fmt.Fprintf(out, "User %s left split %s; the split was deleted\n", args[1], args[0])
			case result.NewCreatorID != "":
				fmt.Fprintf(out, "User %s left split %s; ownership moved to %s\n", args[1], args[0], result.NewCreatorID)
			default:
				fmt.Fprintf(out, "User %s left split %s\n", args[1], args[0])
			}
			return nil
		},
	}
}
