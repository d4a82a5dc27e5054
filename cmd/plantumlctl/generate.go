package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/service"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/llm"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/rendering"
)

func generateCmd(serverURL *string) *cobra.Command {
	var (
		refineFlag string
		outputFlag string
	)

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate (or refine) a diagram with the language model",
		Long: `Generate PlantUML from a natural-language prompt. With --refine the prompt
is treated as feedback applied to the code in the given file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*serverURL)
			if err != nil {
				return err
			}

			engine := rendering.NewHTTPEngine(cfg.Render.ServerURL, cfg.Render.Timeout)
			wf := service.NewWorkflow(
				llm.NewGateway(llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout), cfg.LLM.Model),
				rendering.NewValidator(engine),
				rendering.NewGateway(engine),
			)

			prompt := strings.Join(args, " ")
			var res service.Result
			if refineFlag != "" {
				existing, err := os.ReadFile(refineFlag)
				if err != nil {
					return err
				}
				res = wf.Refine(cmd.Context(), string(existing), prompt)
			} else {
				res = wf.Generate(cmd.Context(), prompt)
			}

			if res.Code != "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.Code)
			}
			if outputFlag != "" && res.Valid {
				if err := os.WriteFile(outputFlag, []byte(res.SVGPreview), 0o644); err != nil {
					return err
				}
			}
			if !res.Valid {
				return fmt.Errorf("%s", res.ErrorMessage)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&refineFlag, "refine", "", "file holding existing PlantUML code to refine")
	cmd.Flags().StringVar(&outputFlag, "svg", "", "write the rendered SVG preview to this file")
	return cmd
}
