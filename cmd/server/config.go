// cmd/server/config.go
package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Isadevans/lucro-backend/internal/config"
)

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			values := cfg.Masked()
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%-22s %v\n", k, values[k])
			}
			return nil
		},
	}
}
