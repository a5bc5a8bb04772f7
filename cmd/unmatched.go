package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/boxflow/internal/config"
	"github.com/sells-group/boxflow/internal/metadata"
	"github.com/sells-group/boxflow/internal/report"
	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/pkg/box"
	"github.com/sells-group/boxflow/pkg/notion"
)

var unmatchedCmd = &cobra.Command{
	Use:   "unmatched",
	Short: "List invoices not yet matched to a purchase order",
	Long: "Searches the folder for invoices whose purchase order number is still Unknown. " +
		"Search results lag metadata writes by up to a few minutes; use --wait-for to poll " +
		"until specific files appear and --verify to drop results that are already stale.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := report.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, config.ModeSearch, false)
		if err != nil {
			return err
		}
		defer env.Close()

		folderFlag, _ := cmd.Flags().GetString("folder")
		folderID, err := folderOrDefault(folderFlag, cfg.Metadata.FolderID)
		if err != nil {
			return err
		}

		q := metadata.UnmatchedInvoices(env.Schema.TemplateKey, folderID)
		q.OrderBy = cfg.Search.OrderBy
		q.Limit, _ = cmd.Flags().GetInt("limit")
		if desc, _ := cmd.Flags().GetBool("desc"); desc {
			q.Direction = box.SortDesc
		}

		m := env.matcher()
		waitFor, _ := cmd.Flags().GetStringSlice("wait-for")
		var matches []metadata.Match
		if len(waitFor) > 0 {
			matches, err = m.WaitForMatches(ctx, q, metadata.ContainsFiles(waitFor...))
			if errors.Is(err, metadata.ErrStale) {
				zap.L().Warn("search index still stale, reporting partial results",
					zap.Strings("wait_for", waitFor), zap.Int("matches", len(matches)))
				err = nil
			}
		} else {
			matches, err = m.FindUnmatched(ctx, q)
		}
		if err != nil {
			return eris.Wrap(err, "unmatched")
		}

		if verify, _ := cmd.Flags().GetBool("verify"); verify {
			matches, err = m.Verify(ctx, q, matches)
			if err != nil {
				return eris.Wrap(err, "unmatched verify")
			}
		}

		output, _ := cmd.Flags().GetString("output")
		return writeReport(cmd, format, output, matches, reportFields(q))
	},
}

// reportFields returns the columns shown for q: identifying fields first.
func reportFields(q metadata.Query) []string {
	fields := []string{metadata.FieldInvoiceNumber, metadata.FieldPurchaseOrderNumber}
	for _, f := range q.Fields {
		if f != metadata.FieldInvoiceNumber && f != metadata.FieldPurchaseOrderNumber {
			fields = append(fields, f)
		}
	}
	return fields
}

func writeReport(cmd *cobra.Command, format, output string, matches []metadata.Match, fields []string) error {
	var w io.Writer = cmd.OutOrStdout()
	switch format {
	case report.FormatXLSX:
		if output == "" {
			output = "unmatched.xlsx"
		}
		if err := report.WriteXLSX(output, "Unmatched", report.NewTable(matches, fields)); err != nil {
			return err
		}
		fmt.Fprintf(w, "wrote %d rows to %s\n", len(matches), output)
		return nil

	case report.FormatNotion:
		if cfg.Notion.Token == "" {
			return eris.New("notion.token is required for --format notion")
		}
		sink := report.NewNotionSink(notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimit)), cfg.Notion.ReportDB, fields,
			report.WithPublishRetry(resilience.FromRetryConfig(cfg.Retry)))
		res, err := sink.Publish(cmd.Context(), matches)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "notion: %d created, %d updated\n", res.Created, res.Updated)
		return nil
	}

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return eris.Wrapf(err, "create %s", output)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	if format == report.FormatJSON {
		return report.WriteJSON(w, matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stderr, "No unmatched invoices.")
		return nil
	}
	return report.WriteTable(w, report.NewTable(matches, fields))
}

func init() {
	unmatchedCmd.Flags().String("folder", "", "ancestor folder to search (default metadata.folder_id)")
	unmatchedCmd.Flags().String("format", report.FormatTable, "output format: table, json, xlsx, notion")
	unmatchedCmd.Flags().String("output", "", "output file (xlsx defaults to unmatched.xlsx)")
	unmatchedCmd.Flags().Int("limit", 0, "max results (0 = all)")
	unmatchedCmd.Flags().Bool("desc", false, "sort descending")
	unmatchedCmd.Flags().Bool("verify", false, "re-read each result's metadata and drop stale hits")
	unmatchedCmd.Flags().StringSlice("wait-for", nil, "file ids to wait for in the search index")
	rootCmd.AddCommand(unmatchedCmd)
}
