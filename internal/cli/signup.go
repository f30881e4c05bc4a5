package cli

import (
	"fmt"
	"strings"

	"github.com/sagehealth/sage/internal/api"
	"github.com/spf13/cobra"
)

var (
	signupName string
	signupRole string
	signupDOB  string
)

var signupCmd = &cobra.Command{
	Use:   "signup <email>",
	Short: "Create an account and sign in",
	Long: `Create a new account. On success you are signed in immediately and the
session token is stored for later commands.

Examples:
  sage signup jane@example.com --name "Jane Doe"
  sage signup jane@example.com --name "Jane Doe" --dob 1991-04-23`,
	Args: cobra.ExactArgs(1),
	RunE: runSignup,
}

func init() {
	signupCmd.Flags().StringVarP(&signupName, "name", "n", "", "display name (required)")
	signupCmd.Flags().StringVar(&signupRole, "role", api.RoleClient, "account role (client or therapist)")
	signupCmd.Flags().StringVar(&signupDOB, "dob", "", "date of birth (YYYY-MM-DD)")
	_ = signupCmd.MarkFlagRequired("name")
}

func runSignup(cmd *cobra.Command, args []string) error {
	email := strings.TrimSpace(args[0])

	if signupRole != api.RoleClient && signupRole != api.RoleTherapist {
		return fmt.Errorf("invalid role %q (want %s or %s)", signupRole, api.RoleClient, api.RoleTherapist)
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	req := api.SignupRequest{
		Email:    email,
		Password: password,
		Name:     strings.TrimSpace(signupName),
		Role:     signupRole,
	}
	if signupDOB != "" {
		req.DateOfBirth = &signupDOB
	}

	user, err := authStore.Signup(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("signup: %w", err)
	}

	fmt.Printf("Welcome, %s! You are signed in.\n", user.Name)
	fmt.Println("Run 'sage chat' to start your intake conversation.")
	return nil
}
