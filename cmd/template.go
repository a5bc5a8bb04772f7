package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/boxflow/internal/config"
	"github.com/sells-group/boxflow/internal/metadata"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage the metadata template",
}

var templateEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the metadata template if it does not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, config.ModeReconcile, false)
		if err != nil {
			return err
		}
		defer env.Close()

		tmpl, err := metadata.NewResolver(env.Box, env.Retry).EnsureSchema(ctx, cfg.Metadata.Scope, env.Schema)
		if err != nil {
			return eris.Wrap(err, "template ensure")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s/%s ready (id %s, %d fields)\n",
			cfg.Metadata.Scope, tmpl.TemplateKey, tmpl.ID, len(tmpl.Fields))
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the metadata template and every instance of it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return eris.New("template delete removes all metadata written with it; pass --yes to confirm")
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, config.ModeReconcile, false)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := metadata.NewResolver(env.Box, env.Retry).DeleteTemplate(ctx, cfg.Metadata.Scope, env.Schema.TemplateKey); err != nil {
			return eris.Wrap(err, "template delete")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s/%s deleted\n", cfg.Metadata.Scope, env.Schema.TemplateKey)
		return nil
	},
}

func init() {
	templateDeleteCmd.Flags().Bool("yes", false, "confirm deletion")

	templateCmd.AddCommand(templateEnsureCmd)
	templateCmd.AddCommand(templateDeleteCmd)
	rootCmd.AddCommand(templateCmd)
}
