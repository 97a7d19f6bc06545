package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset USER_ID...",
	Short: "Delete every message and description written by the given users",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := resetUsers(ctx, a, args); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed memories of %d user(s)\n", len(args))
	return nil
}

func resetUsers(ctx context.Context, a *app, userIDs []string) error {
	if err := a.runtime.Messages().RemoveAllByUserIDs(ctx, userIDs); err != nil {
		return err
	}
	return a.runtime.Descriptions().RemoveAllByUserIDs(ctx, userIDs)
}
