package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmerge/internal/app"
	"github.com/dgallion1/docmerge/internal/manager"
)

var renderCmd = &cobra.Command{
	Use:   "render <template>",
	Short: "Render one template",
	Long: `Render resolves the template's placeholders and writes every artifact the
engine produces into --out, named <template>.<format>. With --stdout the
first artifact (or the one matching --format) is written to standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := placeholderInput(cmd)
		if err != nil {
			return err
		}
		a, err := app.Build(cmd.Context(), cliConfig(), newLogger())
		if err != nil {
			return err
		}
		defer a.Close()

		var opts []manager.RenderOption
		if engine, _ := cmd.Flags().GetString("engine"); engine != "" {
			opts = append(opts, manager.UsingEngine(engine))
		}
		arts, err := a.Manager.Render(cmd.Context(), args[0], input, opts...)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if toStdout, _ := cmd.Flags().GetBool("stdout"); toStdout {
			for _, art := range arts {
				if format == "" || art.Format == format {
					_, err := cmd.OutOrStdout().Write(art.Data)
					return err
				}
			}
			return fmt.Errorf("engine produced no %s artifact", format)
		}

		out, _ := cmd.Flags().GetString("out")
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		for _, art := range arts {
			if format != "" && art.Format != format {
				continue
			}
			path := artifactPath(out, args[0], "", art.Format)
			if err := os.WriteFile(path, art.Data, 0o644); err != nil {
				return fmt.Errorf("write artifact: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
		}
		return nil
	},
}

func init() {
	addPlaceholderFlags(renderCmd)
	renderCmd.Flags().String("engine", "", "engine to render with (default: print)")
	renderCmd.Flags().String("out", ".", "output directory")
	renderCmd.Flags().String("format", "", "only keep artifacts of this format")
	renderCmd.Flags().Bool("stdout", false, "write the artifact to standard output")

	rootCmd.AddCommand(renderCmd)
}
