package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(cmd); err != nil {
			return err
		}

		user := authStore.User()
		fmt.Printf("%s <%s>\n", user.Name, user.Email)
		fmt.Printf("Role: %s\n", user.Role)
		if user.DateOfBirth != nil {
			fmt.Printf("Date of birth: %s\n", *user.DateOfBirth)
		}
		return nil
	},
}
