package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/boxflow/internal/config"
	"github.com/sells-group/boxflow/internal/resilience"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect files whose reconciliation failed",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-letter entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeStore); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		errType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := st.ListDLQ(ctx, resilience.DLQFilter{ErrorType: errType, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "dlq list")
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "Dead-letter queue is empty.")
			return nil
		}
		formatDLQ(cmd.OutOrStdout(), entries)

		total, err := st.CountDLQ(ctx)
		if err != nil {
			return eris.Wrap(err, "dlq count")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d shown, %d queued\n", len(entries), total)
		return nil
	},
}

func formatDLQ(out io.Writer, entries []resilience.DLQEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE_ID\tNAME\tSTAGE\tTYPE\tRETRIES\tNEXT_RETRY\tERROR")
	for _, e := range entries {
		next := e.NextRetryAt.Format("2006-01-02 15:04")
		if !e.CanRetry() {
			next = "-"
		}
		msg := e.Error
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			e.FileID, e.FileName, e.Stage, e.ErrorType, e.RetryCount, e.MaxRetries, next, msg)
	}
	_ = w.Flush()
}

func init() {
	dlqListCmd.Flags().String("type", "", "filter by error type (transient, permanent)")
	dlqListCmd.Flags().Int("limit", 100, "max entries to display")

	dlqCmd.AddCommand(dlqListCmd)
	rootCmd.AddCommand(dlqCmd)
}
