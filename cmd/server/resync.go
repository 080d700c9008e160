// cmd/server/resync.go
package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func resyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync <transactionId> [status]",
		Short: "Push a payment's current state to UTMify",
		Long: `Rebuild the attribution payload for a stored payment and send it again.
The optional status overrides the stored one, using gateway vocabulary
(pending, paid, refused, refunded, chargeback).`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			transactionID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}
			var status string
			if len(args) == 2 {
				status = args[1]
			}

			ctx := context.Background()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.attribution.UpdateAttribution(ctx, transactionID, status) {
				return fmt.Errorf("attribution sync failed for transaction %d", transactionID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transaction %d synced\n", transactionID)
			return nil
		},
	}
}
