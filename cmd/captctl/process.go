package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/service"
)

func (c *cli) processCmd() *cobra.Command {
	var (
		lessonID string
		attempt  int
		useLLM   bool
		provider string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "process [assessment.json|-]",
		Short: "Process one assessment result as an attempt of a lesson",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			raw, err := capt.ParseAssessment(data)
			if err != nil {
				return err
			}
			key, err := c.key(lessonID)
			if err != nil {
				return err
			}

			app, err := c.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Coaching.ProcessAttempt(cmd.Context(), key, raw, attempt, service.ProcessOptions{
				UseLLM:   useLLM,
				Provider: provider,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return c.printJSON(result)
			}
			return c.println(result.Feedback)
		},
	}

	cmd.Flags().StringVar(&lessonID, "lesson", "", "Lesson ID")
	cmd.Flags().IntVar(&attempt, "attempt", 1, "Attempt number (1 starts a new series)")
	cmd.Flags().BoolVar(&useLLM, "llm", false, "Generate feedback with the configured LLM")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (openai, azure, gemini, gemini-lite)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	cmd.MarkFlagRequired("lesson")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
