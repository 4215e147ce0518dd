package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

func knowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Inspect confirmed client knowledge",
	}

	list := &cobra.Command{
		Use:   "list <client-id>",
		Short: "List everything confirmed for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _ := cmd.Flags().GetString("key")

			db, _, closeStore, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			var entries []model.ClientKnowledge
			if key == "" {
				entries, err = db.ListKnowledge(cmd.Context(), args[0])
			} else {
				entries, err = db.Lookup(cmd.Context(), args[0], model.KnowledgeKey(key))
			}
			if err != nil {
				return fmt.Errorf("failed to list knowledge: %w", err)
			}
			return cli.RenderKnowledge(cmd.OutOrStdout(), entries)
		},
	}
	list.Flags().String("key", "", "Only show one key (column_preference, typical_account, anomaly_pattern, ...)")

	cmd.AddCommand(list)
	return cmd
}
