package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and store the session token",
	Long: `Sign in with your email and password. The session token is stored in
your config directory so later commands pick it up automatically.

Examples:
  sage login jane@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	email := strings.TrimSpace(args[0])

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	user, err := authStore.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	fmt.Printf("Signed in as %s (%s)\n", user.Name, user.Email)
	return nil
}

// promptPassword reads a password without echoing it. Falls back to a plain
// line read when stdin is not a terminal (piped input in scripts and tests).
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
