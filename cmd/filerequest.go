package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/boxflow/internal/config"
	"github.com/sells-group/boxflow/internal/filerequest"
	"github.com/sells-group/boxflow/internal/model"
	"github.com/sells-group/boxflow/internal/store"
)

var fileRequestCmd = &cobra.Command{
	Use:     "filerequest",
	Aliases: []string{"fr"},
	Short:   "Manage Box file requests",
	Long: "Copy, update and delete Box file requests. Box cannot list file requests, so " +
		"boxflow keeps an index of the ones it created; list reads that index.",
}

// withFileRequests builds a file-request service and runs fn with it.
func withFileRequests(cmd *cobra.Command, fn func(*filerequest.Service) error) error {
	env, err := initEnv(cmd.Context(), config.ModeFileRequest, true)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(filerequest.NewService(env.Box, env.Store, env.Retry))
}

var fileRequestGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a file request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withFileRequests(cmd, func(s *filerequest.Service) error {
			fr, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fr)
		})
	},
}

var fileRequestCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Create a file request from a template request",
	RunE: func(cmd *cobra.Command, _ []string) error {
		o, err := overridesFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		templateID, _ := cmd.Flags().GetString("template")
		if templateID == "" {
			templateID = cfg.FileRequest.TemplateID
		}
		folderFlag, _ := cmd.Flags().GetString("folder")
		folderID, err := folderOrDefault(folderFlag, cfg.FileRequest.FolderID)
		if err != nil {
			return err
		}

		return withFileRequests(cmd, func(s *filerequest.Service) error {
			fr, err := s.Copy(cmd.Context(), templateID, folderID, o)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fr)
		})
	},
}

var fileRequestUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a file request's title, description, status or expiry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := overridesFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		return withFileRequests(cmd, func(s *filerequest.Service) error {
			fr, err := s.Update(cmd.Context(), args[0], o)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fr)
		})
	},
}

var fileRequestActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Reopen a file request for uploads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withFileRequests(cmd, func(s *filerequest.Service) error {
			fr, err := s.Activate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", fr.ID, fr.Status)
			return nil
		})
	},
}

var fileRequestDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Stop a file request from accepting uploads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withFileRequests(cmd, func(s *filerequest.Service) error {
			fr, err := s.Deactivate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", fr.ID, fr.Status)
			return nil
		})
	},
}

var fileRequestDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a file request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withFileRequests(cmd, func(s *filerequest.Service) error {
			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", args[0])
			return nil
		})
	},
}

var fileRequestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List file requests created by boxflow",
	RunE: func(cmd *cobra.Command, _ []string) error {
		folder, _ := cmd.Flags().GetString("folder")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		return withFileRequests(cmd, func(s *filerequest.Service) error {
			recs, err := s.List(cmd.Context(), store.FileRequestFilter{FolderID: folder, Status: status, Limit: limit})
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(os.Stderr, "No file requests indexed.")
				return nil
			}
			formatFileRequests(cmd.OutOrStdout(), recs, time.Now())
			return nil
		})
	},
}

// overridesFromFlags sets only the fields whose flags were given.
func overridesFromFlags(fs *pflag.FlagSet) (filerequest.Overrides, error) {
	var o filerequest.Overrides
	if fs.Changed("title") {
		v, _ := fs.GetString("title")
		o.Title = &v
	}
	if fs.Changed("description") {
		v, _ := fs.GetString("description")
		o.Description = &v
	}
	if fs.Changed("status") {
		v, _ := fs.GetString("status")
		o.Status = &v
	}
	if fs.Changed("require-email") {
		v, _ := fs.GetBool("require-email")
		o.IsEmailRequired = &v
	}
	if fs.Changed("require-description") {
		v, _ := fs.GetBool("require-description")
		o.IsDescriptionRequired = &v
	}
	if fs.Changed("expires-at") {
		v, _ := fs.GetString("expires-at")
		t, err := dateparse.ParseIn(v, time.UTC)
		if err != nil {
			return o, eris.Wrapf(err, "parse --expires-at %q", v)
		}
		t = t.UTC()
		o.ExpiresAt = &t
	}
	return o, nil
}

func addOverrideFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "file request title")
	fs.String("description", "", "file request description")
	fs.String("status", "", "active or inactive")
	fs.Bool("require-email", false, "require uploaders to give an email address")
	fs.Bool("require-description", false, "require uploaders to describe the upload")
	fs.String("expires-at", "", "expiry, e.g. 2026-12-31 or 2026-12-31T17:00:00Z")
}

func formatFileRequests(out io.Writer, recs []model.FileRequestRecord, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tFOLDER\tSTATUS\tEXPIRES\tURL")
	for _, r := range recs {
		expires := "-"
		if r.ExpiresAt != nil {
			expires = r.ExpiresAt.Format("2006-01-02")
			if r.Expired(now) {
				expires += " (expired)"
			}
		}
		title := r.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, title, r.FolderID, r.Status, expires, r.URL)
	}
	_ = w.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	fileRequestCopyCmd.Flags().String("template", "", "template file request id (default file_request.template_id)")
	fileRequestCopyCmd.Flags().String("folder", "", "destination folder id (default file_request.folder_id)")
	addOverrideFlags(fileRequestCopyCmd.Flags())
	addOverrideFlags(fileRequestUpdateCmd.Flags())

	fileRequestListCmd.Flags().String("folder", "", "filter by folder id")
	fileRequestListCmd.Flags().String("status", "", "filter by status")
	fileRequestListCmd.Flags().Int("limit", 100, "max entries to display")

	fileRequestCmd.AddCommand(
		fileRequestGetCmd,
		fileRequestCopyCmd,
		fileRequestUpdateCmd,
		fileRequestActivateCmd,
		fileRequestDeactivateCmd,
		fileRequestDeleteCmd,
		fileRequestListCmd,
	)
	rootCmd.AddCommand(fileRequestCmd)
}
