package cli

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"foundrchain/core"
	"foundrchain/core/ledger"
	"foundrchain/core/transaction"
	"foundrchain/core/wallet"
)

// importKey hands the caller's key to the ledger unless the keyring already has one.
func importKey(cmd *cobra.Command, l *ledger.Ledger, walletID string) error {
	keyPath, _ := cmd.Flags().GetString("key")
	signer, err := wallet.LoaderFor(keyPath).LoadKey()
	if err != nil {
		if keyPath == "" {
			// nothing supplied; the sealed keyring may still hold the key
			return nil
		}
		return err
	}
	pem, err := core.MarshalPrivateKeyPEM(signer)
	if err != nil {
		return err
	}
	return l.ImportSigningKey(walletID, pem)
}

func printReceipt(cmd *cobra.Command, r ledger.Receipt) error {
	if wantJSON(cmd) {
		return printJSON(cmd, r)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Receipt:  %s\nTx:       %s\nKind:     %s\nAmount:   %s\nBalance:  %s\n",
		r.ReceiptID, r.TxHash, r.Kind, r.Amount, r.BalanceAfter)
	return nil
}

var registerCmd = &cobra.Command{
	Use:   "register <wallet-id> <participant-id> <total-allocation>",
	Short: "Register an allocation; the wallet is credited immediately",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		total, err := decimal.NewFromString(args[2])
		if err != nil {
			return fmt.Errorf("invalid allocation %q: %w", args[2], err)
		}
		alloc := transaction.Allocation{Total: total}
		personal, _ := cmd.Flags().GetString("personal")
		reinvest, _ := cmd.Flags().GetString("reinvest")
		if personal != "" || reinvest != "" {
			p, perr := decimal.NewFromString(personal)
			r, rerr := decimal.NewFromString(reinvest)
			if err := errors.Join(perr, rerr); err != nil {
				return fmt.Errorf("--personal and --reinvest must both be decimals: %w", err)
			}
			alloc.PersonalShare, alloc.ReinvestmentShare = &p, &r
		}
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			if err := importKey(cmd, l, args[0]); err != nil {
				return err
			}
			r, err := l.RegisterAllocation(args[0], args[1], alloc)
			if err != nil {
				return err
			}
			return printReceipt(cmd, r)
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <wallet-id> <amount>",
	Short: "Withdraw from a wallet; fails when the balance is insufficient",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		kind, _ := cmd.Flags().GetString("kind")
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			if err := importKey(cmd, l, args[0]); err != nil {
				return err
			}
			r, err := l.Withdraw(args[0], amount, kind)
			if err != nil {
				return err
			}
			return printReceipt(cmd, r)
		})
	},
}

func init() {
	rootCmd.AddCommand(registerCmd, withdrawCmd)
	for _, c := range []*cobra.Command{registerCmd, withdrawCmd} {
		c.Flags().String("key", "", "PEM private key file (default: $"+wallet.EnvSignerKey+")")
		addOutputFlag(c)
	}
	registerCmd.Flags().String("personal", "", "Override the personal share amount")
	registerCmd.Flags().String("reinvest", "", "Override the reinvestment share amount")
	withdrawCmd.Flags().String("kind", "standard", "Withdrawal kind")
}
