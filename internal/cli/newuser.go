package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cojourney/cjagent/internal/store"
)

var (
	newUserID    string
	newUserName  string
	newUserEmail string
)

var newUserCmd = &cobra.Command{
	Use:   "newuser",
	Short: "Register an account and start its onboarding conversation",
	RunE:  runNewUser,
}

func init() {
	newUserCmd.Flags().StringVarP(&newUserID, "user", "u", "", "User ID")
	newUserCmd.Flags().StringVarP(&newUserName, "name", "n", "", "Display name; creates or updates the account when set")
	newUserCmd.Flags().StringVar(&newUserEmail, "email", "", "Email address")
	_ = newUserCmd.MarkFlagRequired("user")
}

func runNewUser(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if newUserName != "" {
		if err := a.store.CreateAccount(ctx, &store.Account{ID: newUserID, Name: newUserName, Email: newUserEmail}); err != nil {
			return err
		}
	}
	h, err := a.runtime.Onboard(ctx, newUserID)
	if err != nil {
		return err
	}
	if h != nil {
		if err := h.Wait(ctx); err != nil {
			return fmt.Errorf("greeting failed: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Onboarded %s\n", newUserID)
	return nil
}
