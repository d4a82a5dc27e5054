package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/rendering"
)

func validateCmd(serverURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [files...]",
		Short: "Check PlantUML files against the render engine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*serverURL)
			if err != nil {
				return err
			}
			v := rendering.NewValidator(rendering.NewHTTPEngine(cfg.Render.ServerURL, cfg.Render.Timeout))

			invalid := 0
			for _, file := range args {
				src, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if msg := v.ErrorMessage(cmd.Context(), string(src)); msg != "" {
					invalid++
					fmt.Fprintf(cmd.OutOrStdout(), "invalid %s: %s\n", file, msg)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "valid   %s\n", file)
			}
			if invalid > 0 {
				return fmt.Errorf("%d invalid diagram(s)", invalid)
			}
			return nil
		},
	}
}
