package cli

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"foundrchain/core/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show node status and host metrics",
	Example: `  foundrchain status
  foundrchain status --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			m := l.Metrics()
			if wantJSON(cmd) {
				return printJSON(cmd, m)
			}
			data := pterm.TableData{
				{"Metric", "Value"},
				{"Chain length", fmt.Sprint(m.ChainLength)},
				{"Pending txs", fmt.Sprint(m.MempoolSize)},
				{"Peers", fmt.Sprint(m.PeerCount)},
				{"Tier", fmt.Sprintf("%d (%s)", m.Tier, m.ConsensusLabel)},
				{"Last block", m.LastBlockTime},
				{"CPU %", fmt.Sprintf("%.1f", m.CPULoadPercent)},
				{"Process memory MB", fmt.Sprintf("%.1f", m.MemoryMB)},
				{"Host memory %", fmt.Sprintf("%.1f", m.HostMemoryPercent)},
				{"Disk free MB", fmt.Sprintf("%.0f", m.DiskFreeMB)},
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		})
	},
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Manage the recorded peer list",
}

var peersAddCmd = &cobra.Command{
	Use:   "add <id> <address>",
	Short: "Record a peer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			if err := l.AddPeer(args[0], args[1]); err != nil {
				return err
			}
			pterm.Success.Printfln("Peer %s recorded at %s", args[0], args[1])
			return nil
		})
	},
}

var peersRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Forget a peer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			return l.RemovePeer(args[0])
		})
	},
}

var peersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded peers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			peers := l.Peers()
			if wantJSON(cmd) {
				return printJSON(cmd, peers)
			}
			data := pterm.TableData{{"ID", "Address", "Added"}}
			for _, p := range peers {
				data = append(data, []string{p.ID, p.Address, p.AddedAt.Format("2006-01-02 15:04:05")})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, peersCmd)
	peersCmd.AddCommand(peersAddCmd, peersRemoveCmd, peersListCmd)
	addOutputFlag(statusCmd)
	addOutputFlag(peersListCmd)
}
