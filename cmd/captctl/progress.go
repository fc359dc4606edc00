package main

import (
	"github.com/spf13/cobra"

	"github.com/windfall/phonoecho_service/internal/capt"
)

func (c *cli) progressCmd() *cobra.Command {
	var lessonID string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the progress of a lesson series",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := c.key(lessonID)
			if err != nil {
				return err
			}
			app, err := c.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			progress, err := app.Coaching.ProgressSummary(cmd.Context(), key)
			if err != nil {
				return err
			}
			return c.printJSON(progress)
		},
	}

	cmd.Flags().StringVar(&lessonID, "lesson", "", "Lesson ID")
	cmd.MarkFlagRequired("lesson")
	return cmd
}

func (c *cli) promptCmd() *cobra.Command {
	var (
		lessonID string
		language string
	)

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the feedback prompt for the latest attempt of a lesson",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := c.key(lessonID)
			if err != nil {
				return err
			}
			app, err := c.build(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			card, last, err := app.Coaching.Snapshot(cmd.Context(), key)
			if err != nil {
				return err
			}
			cfg := app.Feedback
			if language != "" {
				cfg.FeedbackLanguage = language
			}
			return c.println(capt.BuildPrompt(card, last, cfg).Format())
		},
	}

	cmd.Flags().StringVar(&lessonID, "lesson", "", "Lesson ID")
	cmd.Flags().StringVar(&language, "language", "", "Prompt language (ja or en)")
	cmd.MarkFlagRequired("lesson")
	return cmd
}
