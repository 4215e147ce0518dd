package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

func suggestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "suggestions",
		Aliases: []string{"suggest"},
		Short:   "Review learned suggestions",
		Long: `List, confirm and reject the suggestions proposed by reconciliation runs.

A suggestion only changes how documents are read after it is confirmed.`,
	}

	cmd.AddCommand(suggestionsListCmd())
	cmd.AddCommand(suggestionsConfirmCmd())
	cmd.AddCommand(suggestionsRejectCmd())
	cmd.AddCommand(suggestionsReviewCmd())

	return cmd
}

func suggestionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <client-id>",
		Short: "List a client's suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			if status == "all" {
				status = ""
			}

			_, store, closeStore, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			suggestions, err := store.Suggestions(cmd.Context(), args[0], model.SuggestionStatus(status))
			if err != nil {
				return fmt.Errorf("failed to list suggestions: %w", err)
			}
			return cli.RenderSuggestions(cmd.OutOrStdout(), suggestions)
		},
	}

	cmd.Flags().String("status", string(model.SuggestionPending), "Filter by status (pending, accepted, rejected, all)")

	return cmd
}

func suggestionsConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <suggestion-id>",
		Short: "Confirm a pending suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, closeStore, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			k, err := store.Confirm(cmd.Context(), args[0])
			if err != nil {
				return suggestionError(args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Confirmed %s %s for %s", k.Key, k.Subject, k.ClientID)))
			return nil
		},
	}
}

func suggestionsRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <suggestion-id>",
		Short: "Reject a pending suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, closeStore, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Reject(cmd.Context(), args[0]); err != nil {
				return suggestionError(args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Rejected "+args[0]))
			return nil
		},
	}
}

func suggestionsReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <client-id>",
		Short: "Interactively accept or reject pending suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, closeStore, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Review")
			ctx := handler.HandleInterrupts(cmd.Context())
			defer handler.Stop()

			reviewer := cli.NewReviewer(store, cmd.InOrStdin(), cmd.OutOrStdout())
			stats, err := reviewer.Review(ctx, args[0])
			if err != nil && !errors.Is(err, cli.ErrInputCancelled) {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf(
				"%d accepted, %d rejected, %d skipped", stats.Accepted, stats.Rejected, stats.Skipped)))
			return nil
		},
	}
}

func suggestionError(id string, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return common.NewUserError(fmt.Sprintf("suggestion %s not found", id), err)
	case errors.Is(err, common.ErrInvalidTransition):
		return common.NewUserError(fmt.Sprintf("suggestion %s is no longer pending", id), err)
	default:
		return err
	}
}
