package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"foundrchain/core/ledger"
	"foundrchain/core/wallet"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Create and inspect wallets",
}

var walletCreateCmd = &cobra.Command{
	Use:   "create <participant-id>",
	Short: "Create a wallet; the private key is shown once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyOut, _ := cmd.Flags().GetString("key-out")
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			h, err := l.CreateWallet(args[0])
			if err != nil {
				return err
			}
			if keyOut != "" {
				if err := os.WriteFile(keyOut, []byte(h.PrivateKeyPEM), 0o600); err != nil {
					return fmt.Errorf("write private key: %w", err)
				}
				h.PrivateKeyPEM = ""
			}
			if wantJSON(cmd) {
				return printJSON(cmd, h)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wallet:      %s\nParticipant: %s\nAlgorithm:   %s\n", h.WalletID, h.ParticipantID, h.Algorithm)
			if keyOut != "" {
				fmt.Fprintf(out, "Private key written to %s\n", keyOut)
			} else {
				fmt.Fprintf(out, "\nStore this private key now; it is not kept in the wallet record:\n%s", h.PrivateKeyPEM)
			}
			return nil
		})
	},
}

var walletShowCmd = &cobra.Command{
	Use:   "show <wallet-id>",
	Short: "Show a wallet's balance and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			w, err := l.GetWallet(args[0])
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd, w)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wallet:      %s\nParticipant: %s\nBalance:     %s\nActive:      %v\n\n",
				w.ID, w.ParticipantID, w.Balance, w.Active)
			return renderHistory(w.History)
		})
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			ids := l.WalletIDs()
			sort.Strings(ids)
			views := make([]wallet.PublicView, 0, len(ids))
			for _, id := range ids {
				w, err := l.GetWallet(id)
				if err != nil {
					return err
				}
				views = append(views, w)
			}
			if wantJSON(cmd) {
				return printJSON(cmd, views)
			}
			data := pterm.TableData{{"Wallet", "Participant", "Balance", "Entries"}}
			for _, w := range views {
				data = append(data, []string{w.ID, w.ParticipantID, w.Balance.String(), fmt.Sprint(len(w.History))})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		})
	},
}

func renderHistory(history []wallet.HistoryEntry) error {
	if len(history) == 0 {
		pterm.Info.Println("No history")
		return nil
	}
	data := pterm.TableData{{"Tx", "Kind", "Delta", "Balance", "At"}}
	for _, h := range history {
		data = append(data, []string{shortHash(h.TxHash), h.Kind, h.Delta.String(), h.BalanceAfter.String(), h.At.Format("2006-01-02 15:04:05")})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func shortHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16]
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletCreateCmd, walletShowCmd, walletListCmd)
	walletCreateCmd.Flags().String("key-out", "", "Write the private key PEM to this file instead of printing it")
	for _, c := range []*cobra.Command{walletCreateCmd, walletShowCmd, walletListCmd} {
		addOutputFlag(c)
	}
}
