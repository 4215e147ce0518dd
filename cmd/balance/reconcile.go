package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/knowledge"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <client-id> <dir|file>...",
		Short: "Reconcile a client's tax statements against the ledger",
		Long: `Classify every document, extract the Restanzen and ledger balances and
evaluate the reconciliation rules.

Documents are plain text files; a directory argument contributes every *.txt
file inside it. New conventions found in the batch are stored as pending
suggestions and only take effect after 'balance suggestions review'.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runReconcile,
	}

	cmd.Flags().StringP("format", "f", cli.FormatTable, "Output format (table, json, yaml)")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolP("verbose", "v", false, "Show the extracted items of every result")
	cmd.Flags().Bool("no-store", false, "Run without the knowledge database (nothing is learned)")
	cmd.Flags().Bool("no-progress", false, "Hide the progress bar")
	cmd.Flags().String("column", "", "Read amounts from this header column instead of the configured default")

	return cmd
}

func runReconcile(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")
	noStore, _ := cmd.Flags().GetBool("no-store")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	column, _ := cmd.Flags().GetString("column")

	switch format {
	case cli.FormatTable, cli.FormatJSON, cli.FormatYAML:
	default:
		return common.NewUserError(fmt.Sprintf("unknown format %q", format), nil)
	}

	clientID := args[0]
	inputs, err := loadDocuments(args[1:])
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return common.NewUserError("no documents found", nil)
	}
	slog.Debug("Documents loaded", "client_id", clientID, "documents", len(inputs), "knowledge_store", !noStore)

	var store knowledge.Store
	if !noStore {
		_, cached, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()
		store = cached
	}

	reconciler, err := engine.New(withColumn(appConfig, column), store)
	if err != nil {
		return common.NewUserError("invalid reconciliation setup", err)
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Reconciliation")
	ctx := handler.HandleInterrupts(cmd.Context())
	defer handler.Stop()

	var progress *cli.DocumentProgress
	if !noProgress && format == cli.FormatTable && output == "" {
		progress = cli.NewDocumentProgress(cmd.ErrOrStderr(), len(inputs))
		reconciler.SetProgress(func(doc model.Document) { progress.Done(doc) })
	}

	report, err := reconciler.Run(ctx, clientID, inputs)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		if handler.WasInterrupted() || errors.Is(err, ctx.Err()) {
			return common.NewUserError("reconciliation interrupted", err)
		}
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output) //nolint:gosec // user chosen report path
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := cli.WriteReport(w, report, format, verbose); err != nil {
		return err
	}

	if output != "" {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Report written to "+output))
	}
	return nil
}

// withColumn returns cfg with column as the default amount column. The
// loaded configuration is left untouched.
func withColumn(cfg *config.Config, column string) *config.Config {
	column = strings.TrimSpace(column)
	if column == "" {
		return cfg
	}
	run := *cfg
	run.Extraction.DefaultColumnName = column
	if !slices.Contains(run.Extraction.ColumnNames, column) {
		run.Extraction.ColumnNames = append(slices.Clone(run.Extraction.ColumnNames), column)
	}
	return &run
}
