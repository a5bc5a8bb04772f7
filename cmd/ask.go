package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/boxflow/internal/config"
	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/pkg/box"
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask Box AI a question about one or more files",
	Long: "Sends the prompt and the given files to Box AI. With --generate the prompt is " +
		"treated as a text generation request grounded on a single file.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, _ := cmd.Flags().GetStringSlice("file")
		if len(files) == 0 {
			return eris.New("at least one --file is required")
		}
		generate, _ := cmd.Flags().GetBool("generate")
		if generate && len(files) > 1 {
			return eris.New("--generate takes exactly one --file")
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, config.ModeBox, false)
		if err != nil {
			return err
		}
		defer env.Close()

		prompt := strings.Join(args, " ")
		items := make([]box.AIItem, 0, len(files))
		for _, id := range files {
			items = append(items, box.AIItem{ID: id, Type: "file"})
		}

		resp, err := resilience.DoVal(ctx, env.Retry, func(ctx context.Context) (*box.AIResponse, error) {
			if generate {
				return env.Box.AITextGen(ctx, box.AITextGenRequest{Prompt: prompt, Items: items})
			}
			return env.Box.AIAsk(ctx, box.AIAskRequest{Prompt: prompt, Items: items})
		})
		if err != nil {
			return eris.Wrap(err, "ask")
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.Answer)
		if resp.CompletionReason != "" && resp.CompletionReason != "done" {
			fmt.Fprintf(cmd.ErrOrStderr(), "completion reason: %s\n", resp.CompletionReason)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringSlice("file", nil, "file id to ask about (repeatable)")
	askCmd.Flags().Bool("generate", false, "use text generation instead of question answering")
	rootCmd.AddCommand(askCmd)
}
