package cli

import (
	"fmt"
	"time"

	"github.com/matheus3301/vchat/internal/api"
	"github.com/spf13/cobra"
)

var addressQR bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and session status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, defaultTimeout)
		defer cancel()
		resp, err := daemonClient.Session.GetStatus(ctx, &api.GetStatusRequest{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			return outputJSON(out, resp)
		}
		identity := resp.Identity
		if identity == "" {
			identity = "(logged out)"
		}
		fmt.Fprintf(out, "Profile:     %s\n", resp.Profile)
		fmt.Fprintf(out, "Status:      %s (for %s)\n", resp.Status, time.Since(time.UnixMilli(resp.StatusSinceUnixMs)).Round(time.Second))
		fmt.Fprintf(out, "Identity:    %s\n", identity)
		fmt.Fprintf(out, "Persistence: %s\n", onOff(resp.Persistence))
		if resp.LastPollUnixMs > 0 {
			fmt.Fprintf(out, "Last poll:   %s\n", time.UnixMilli(resp.LastPollUnixMs).Format(time.DateTime))
		}
		fmt.Fprintf(out, "Uptime:      %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
		fmt.Fprintf(out, "PID:         %d\n", resp.PID)
		return nil
	},
}

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List wallet identities that can log in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, defaultTimeout)
		defer cancel()
		resp, err := daemonClient.Session.ListIdentities(ctx, &api.ListIdentitiesRequest{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			return outputJSON(out, resp)
		}
		for _, id := range resp.Identities {
			fmt.Fprintf(out, "%-30s %s\n", sanitizeForTerminal(id.Name), id.IAddress)
		}
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <identity@>",
	Short: "Log in as one of the wallet's identities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, defaultTimeout)
		defer cancel()
		resp, err := daemonClient.Session.Login(ctx, &api.LoginRequest{Name: args[0]})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			return outputJSON(out, resp)
		}
		fmt.Fprintf(out, "Logged in as %s (persistence %s)\n", resp.Identity.Name, onOff(resp.Persistence))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and stop syncing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, defaultTimeout)
		defer cancel()
		resp, err := daemonClient.Session.Logout(ctx, &api.LogoutRequest{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			return outputJSON(out, resp)
		}
		fmt.Fprintf(out, "Logged out %s\n", resp.Identity)
		return nil
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show the private address of the logged-in identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, defaultTimeout)
		defer cancel()
		resp, err := daemonClient.Session.GetWallet(ctx, &api.GetWalletRequest{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			return outputJSON(out, map[string]string{"address": resp.Address})
		}
		fmt.Fprintln(out, resp.Address)
		if addressQR {
			qr, err := renderQR(resp.Address)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s", qr)
		}
		return nil
	},
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Show balance and fast-message availability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, defaultTimeout)
		defer cancel()
		resp, err := daemonClient.Session.GetWallet(ctx, &api.GetWalletRequest{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			return outputJSON(out, resp)
		}
		fmt.Fprintf(out, "Address:    %s\n", resp.Address)
		fmt.Fprintf(out, "Balance:    %s VRSC\n", resp.Balance)
		if resp.Pending {
			fmt.Fprintf(out, "            change pending since block %d\n", resp.PendingSince)
		}
		fmt.Fprintf(out, "Height:     %d\n", resp.Height)
		fmt.Fprintf(out, "Fast sends: %d (%d notes too small)\n", resp.Usable, resp.TooSmall)
		if resp.Usable > 0 {
			fmt.Fprintf(out, "Notes:      %s .. %s VRSC\n", resp.Smallest, resp.Largest)
		}
		return nil
	},
}

var persistCmd = &cobra.Command{
	Use:       "persist <on|off>",
	Short:     "Turn on-disk chat history on or off",
	Long:      "Turning persistence off keeps what is already stored. Use wipe to delete it.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, defaultTimeout)
		defer cancel()
		resp, err := daemonClient.Session.SetPersistence(ctx, &api.SetPersistenceRequest{Enabled: args[0] == "on"})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			return outputJSON(out, resp)
		}
		fmt.Fprintf(out, "Persistence %s\n", onOff(resp.Enabled))
		return nil
	},
}

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete stored chat data of the logged-in identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(cmd, defaultTimeout)
		defer cancel()
		if _, err := daemonClient.Session.DeleteChatData(ctx, &api.DeleteChatDataRequest{}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stored chat data deleted; persistence off")
		return nil
	},
}

func init() {
	addressCmd.Flags().BoolVar(&addressQR, "qr", false, "also print the address as a QR code")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
