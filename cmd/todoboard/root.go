package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/todoboard/internal/app"
	"github.com/nhle/todoboard/internal/model"
	appsync "github.com/nhle/todoboard/internal/sync"
	"github.com/nhle/todoboard/internal/todoapi"
)

// options holds the global flags and the configuration they resolve to.
type options struct {
	configPath string
	baseURL    string
	logLevel   string
	metrics    bool

	cfg *model.AppConfig
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "todoboard",
		Short: "A terminal todo list backed by a remote REST collection",
		Long: `todoboard fetches, filters, sorts, paginates and creates todos against a
remote REST collection. Without a subcommand it starts the interactive UI.

Examples:
  # Start the interactive UI
  todoboard

  # Print the second page of pending-first todos matching "milk"
  todoboard list --search milk --sort pending-first --page 2

  # Create a todo
  todoboard add "Buy milk"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", model.DefaultConfigPath(), "Config file path")
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "Override api.base_url")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log.level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "Print cache counters to stderr after a command")

	rootCmd.AddCommand(
		newListCmd(opts),
		newStatsCmd(opts),
		newAddCmd(opts),
	)

	return rootCmd
}

// load reads the config file and applies flag overrides.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := model.LoadConfig(o.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("base-url") {
		cfg.API.BaseURL = o.baseURL
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	o.cfg = cfg
	return nil
}

// runTUI starts the Bubble Tea program. Logs go to the configured file
// only, the terminal belongs to the UI.
func runTUI(opts *options) error {
	rt, err := newRuntime(opts.cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	poller := appsync.New(rt.store,
		appsync.WithInterval(opts.cfg.RefreshInterval()),
		appsync.WithTags(todoapi.TagAll, todoapi.TagStats, todoapi.TagList),
		appsync.WithLogger(rt.logger),
	)

	m := app.New(app.Deps{
		API:        rt.api,
		Poller:     poller,
		Config:     opts.cfg,
		ConfigPath: opts.configPath,
		Logger:     rt.logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	poller.Stop()
	if err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}
