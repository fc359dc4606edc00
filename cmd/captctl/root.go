package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/windfall/phonoecho_service/internal/bootstrap"
	"github.com/windfall/phonoecho_service/internal/capt"
	"github.com/windfall/phonoecho_service/internal/config"
	"github.com/windfall/phonoecho_service/internal/logger"
)

// cli carries the state shared by the subcommands.
type cli struct {
	out        io.Writer
	storage    string
	historyDir string
	userID     string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "captctl",
		Short:         "Pronunciation coaching pipeline tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.PersistentFlags().StringVar(&c.storage, "storage", "", "Storage backend (overrides STORAGE_BACKEND)")
	root.PersistentFlags().StringVar(&c.historyDir, "history-dir", "", "History directory for the file backend (overrides HISTORY_DIR)")
	root.PersistentFlags().StringVar(&c.userID, "user", "local", "Learner ID")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level")

	root.AddCommand(
		c.processCmd(),
		c.progressCmd(),
		c.promptCmd(),
		c.tokenCmd(),
		c.watchCmd(),
	)
	return root
}

func (c *cli) loadConfig() error {
	if c.storage != "" {
		os.Setenv("STORAGE_BACKEND", c.storage)
	}
	if c.historyDir != "" {
		os.Setenv("HISTORY_DIR", c.historyDir)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = logger.NewWriter(os.Stderr, c.logLevel, "console")
	return nil
}

func (c *cli) build(cmd *cobra.Command) (*bootstrap.App, error) {
	return bootstrap.Build(cmd.Context(), c.cfg, c.log, nil)
}

func (c *cli) key(lessonID string) (capt.LessonKey, error) {
	key := capt.LessonKey{UserID: c.userID, LessonID: lessonID}
	if err := key.Validate(); err != nil {
		return capt.LessonKey{}, err
	}
	return key, nil
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (c *cli) println(s string) error {
	_, err := fmt.Fprintln(c.out, s)
	return err
}
