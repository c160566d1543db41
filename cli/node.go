package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"foundrchain/core/ledger"
	"foundrchain/core/notify"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the ledger node and its block producer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")

		logDir := filepath.Join(cfg.DataDir, "logs")
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return err
		}
		logFile, err := os.OpenFile(filepath.Join(logDir, "foundrchain.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, logFile))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		l, err := ledger.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer l.Close()

		events, cancel := l.Subscribe(0)
		defer cancel()
		go func() {
			for ev := range events {
				switch ev.Type {
				case notify.TierChanged:
					log.Printf("[NODE] tier %d -> %d (%s)", ev.PreviousTier, ev.Tier, ev.Consensus)
				case notify.BlockCreated:
					log.Printf("[NODE] block %d: %d tx(s), tier %d", ev.BlockIndex, ev.TxCount, ev.Tier)
				}
			}
		}()

		log.Printf("[NODE] Starting foundrchain node (data dir %s)", cfg.DataDir)
		err = l.RunProducer(ctx, interval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble one block from the pending mempool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd.Context(), func(l *ledger.Ledger) error {
			blk, err := l.AssembleBlock(cmd.Context())
			if err != nil {
				return err
			}
			if blk == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Mempool is empty, no block produced")
				return nil
			}
			if wantJSON(cmd) {
				return printJSON(cmd, blk)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Block %d mined with %d tx(s)\nHash: %s\n", blk.Index, len(blk.Transactions), blk.Hash)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd, assembleCmd)
	nodeCmd.Flags().Duration("interval", 0, "Block interval (0 uses the configured blockInterval)")
	addOutputFlag(assembleCmd)
}
