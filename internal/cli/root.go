// Package cli implements vchatctl, the command-line client of vchatd.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/matheus3301/vchat/internal/client"
	"github.com/matheus3301/vchat/internal/session"
	"github.com/spf13/cobra"
)

const defaultTimeout = 10 * time.Second

var (
	// Global flags
	profileFlag string
	jsonOut     bool

	profile      string
	daemonClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "vchatctl",
	Short: "Control a running vchatd",
	Long: `vchatctl talks to the vchatd daemon of a profile over its Unix socket.

Log in with one of the wallet's identities, start conversations with other
VerusIDs and exchange shielded memo messages with them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		profile = session.Resolve(profileFlag)
		if err := session.ValidateName(profile); err != nil {
			return err
		}

		socketPath := session.SocketPath(profile)
		if _, err := os.Stat(socketPath); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("daemon for profile %q is not running (start it with: vchatd --profile %s)", profile, profile)
		}
		c, err := client.New(socketPath)
		if err != nil {
			return fmt.Errorf("cannot connect to daemon for profile %q: %w", profile, err)
		}
		daemonClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if daemonClient != nil {
			_ = daemonClient.Close()
		}
	},
}

// Execute runs the command tree. Cancelling ctx ends streaming commands.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(identitiesCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(addressCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(persistCmd)
	rootCmd.AddCommand(wipeCmd)

	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(watchCmd)
}

func withTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), d)
}
