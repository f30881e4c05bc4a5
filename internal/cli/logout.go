package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and discard the stored session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Local state is cleared even when the server call fails; the token
		// is gone either way.
		authStore.Logout(cmd.Context())
		fmt.Println("Signed out.")
		return nil
	},
}
