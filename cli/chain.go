package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"foundrchain/core/difficulty"
	"foundrchain/core/ledger"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List the latest blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("limit")
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			blocks, err := l.GetLatestBlocks(n)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd, blocks)
			}
			data := pterm.TableData{{"Index", "Time", "Txs", "Tier", "Nonce", "Hash"}}
			for _, b := range blocks {
				label := ""
				if t, ok := difficulty.ByLevel(b.Tier); ok {
					label = t.ConsensusLabel
				}
				data = append(data, []string{
					strconv.FormatUint(b.Index, 10),
					time.UnixMilli(b.Timestamp).UTC().Format(time.RFC3339),
					strconv.Itoa(len(b.Transactions)),
					fmt.Sprintf("%d (%s)", b.Tier, label),
					strconv.FormatUint(b.Nonce, 10),
					shortHash(b.Hash),
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		})
	},
}

var blockCmd = &cobra.Command{
	Use:   "block <index>",
	Short: "Show one block as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid block index %q", args[0])
		}
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			b, ok, err := l.GetBlock(index)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("block %d not found", index)
			}
			return printJSON(cmd, b)
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify chain integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			res, err := l.VerifyChain()
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				if err := printJSON(cmd, res); err != nil {
					return err
				}
				return res.Err()
			}
			if res.Valid {
				pterm.Success.Printfln("Chain of %d block(s) is valid", l.ChainLength())
				return nil
			}
			return res.Err()
		})
	},
}

var proveCmd = &cobra.Command{
	Use:   "prove",
	Short: "Produce a signed valuation proof",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			p, err := l.ProveValuation()
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd, p)
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Chain length:     %d (latest %d %s)\nFounders:         %d\nAllocated units:  %s\nUnit value:       %s\nValuation:        %s\nTier:             %d (%s)\nProof hash:       %s\nNode key:         %s\n",
				p.ChainLength, p.LatestBlockIndex, shortHash(p.LatestBlockHash), p.RegisteredFounders,
				p.TotalAllocatedUnits, p.UnitValue, p.CurrentValuation, p.Tier.Level, p.Tier.ConsensusLabel,
				p.ProofHash, p.NodePublicKey)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(blocksCmd, blockCmd, verifyCmd, proveCmd)
	blocksCmd.Flags().IntP("limit", "n", 10, "Number of blocks to show")
	for _, c := range []*cobra.Command{blocksCmd, verifyCmd, proveCmd} {
		addOutputFlag(c)
	}
}
