// Package cli provides the command-line interface for sage.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sagehealth/sage/internal/api"
	"github.com/sagehealth/sage/internal/auth"
	"github.com/sagehealth/sage/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and wiring, set up in PersistentPreRunE
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	tokens     *auth.FileTokenStore
	apiClient  *api.Client
	authStore  *auth.Store
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sage",
	Short: "Therapy group onboarding from your terminal",
	Long: `Sage guides you from first contact to a confirmed therapy group session:
a short intake conversation, a group match, scheduling, and payment.

Your answers stay between you and your care team. Sign up once, then run
'sage chat' to start the intake conversation.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip service wiring for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, level)

		tokens = auth.NewFileTokenStore(cfg.TokenFile)
		apiClient = api.New(cfg.ServerURL, tokens, logger)
		authStore = auth.NewStore(apiClient, tokens, logger)
		apiClient.OnSessionExpired(func() {
			authStore.SessionExpired()
			fmt.Fprintln(os.Stderr, "Your session has expired. Run 'sage login' to sign back in.")
		})

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// requireAuth resolves the persisted session before a command that needs one.
// A reachable server with a dead token fails with a login hint; a transient
// server error is reported as-is so the user can retry without losing the
// stored token.
func requireAuth(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if err := authStore.Refresh(ctx); err != nil {
		return fmt.Errorf("verify session: %w", err)
	}
	if !authStore.Authenticated() {
		return fmt.Errorf("not signed in; run 'sage login' first")
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(payCmd)
	rootCmd.AddCommand(restartCmd)
}
