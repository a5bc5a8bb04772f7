package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/boxflow/internal/config"
	"github.com/sells-group/boxflow/internal/metadata"
	"github.com/sells-group/boxflow/internal/model"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Suggest, normalize and apply metadata to files",
	Long: "Runs every file in a folder (or a single file) through the AI suggestion endpoint, " +
		"normalizes the suggestions against the template defaults and writes them as metadata. " +
		"With --retry-dlq, re-runs files whose earlier attempts failed.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, config.ModeReconcile, true)
		if err != nil {
			return err
		}
		defer env.Close()
		r := env.reconciler()
		out := cmd.OutOrStdout()

		retryDLQ, _ := cmd.Flags().GetBool("retry-dlq")
		fileID, _ := cmd.Flags().GetString("file")
		switch {
		case retryDLQ:
			limit, _ := cmd.Flags().GetInt("limit")
			retried, recovered, err := r.RetryDLQ(ctx, limit)
			if err != nil {
				return eris.Wrap(err, "process retry-dlq")
			}
			fmt.Fprintf(out, "retried %d, recovered %d\n", retried, recovered)
			return nil

		case fileID != "":
			name, _ := cmd.Flags().GetString("name")
			res, err := r.ReconcileFile(ctx, fileID, name)
			if err != nil {
				return eris.Wrap(err, "process file")
			}
			formatResults(out, []metadata.FileResult{res})
			if res.Err != nil {
				return eris.Wrapf(res.Err, "process file %s", fileID)
			}
			return nil
		}

		folderFlag, _ := cmd.Flags().GetString("folder")
		folderID, err := folderOrDefault(folderFlag, cfg.Metadata.FolderID)
		if err != nil {
			return err
		}
		run, results, err := r.ReconcileFolder(ctx, folderID)
		if err != nil {
			return eris.Wrap(err, "process folder")
		}
		formatResults(out, results)
		var s model.RunSummary
		for _, res := range results {
			s.Add(res.Outcome)
		}
		fmt.Fprintf(out, "\nrun %s: %d files, %d created, %d patched, %d patch failed, %d failed\n",
			truncateID(run.ID), s.Files, s.Created, s.Patched, s.PatchFailed, s.Failed)
		return nil
	},
}

// formatResults writes one line per reconciled file.
func formatResults(w io.Writer, results []metadata.FileResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FILE_ID\tNAME\tOUTCOME\tSTAGE\tERROR")
	for _, r := range results {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
			if len(errMsg) > 60 {
				errMsg = errMsg[:57] + "..."
			}
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.FileID, r.FileName, r.Outcome, r.Stage, errMsg)
	}
	_ = tw.Flush()
}

func init() {
	processCmd.Flags().String("folder", "", "folder id to process (default metadata.folder_id)")
	processCmd.Flags().String("file", "", "process a single file id")
	processCmd.Flags().String("name", "", "file name for --file, used in logs and the journal")
	processCmd.Flags().Bool("retry-dlq", false, "retry due dead-letter entries instead")
	processCmd.Flags().Int("limit", 100, "max dead-letter entries to retry")
	rootCmd.AddCommand(processCmd)
}
