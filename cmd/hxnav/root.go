package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pthm/hxnav/lib/config"
	"github.com/pthm/hxnav/lib/logging"
)

// rootOptions holds global flags and the state they produce.
type rootOptions struct {
	ConfigPath string
	LogLevel   string

	config *config.Config
	log    *log.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "hxnav",
		Short:         "hxnav - progressive enhancement engine for server-rendered pages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(opts.ConfigPath)
			if err != nil {
				return err
			}
			if opts.LogLevel != "" {
				cfg.Log.Level = opts.LogLevel
			}
			opts.config = cfg
			opts.log = logging.NewLogger(cmd.ErrOrStderr(), cfg.Log)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "hxnav.toml", "config file (defaults apply when it does not exist)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(newDemoCommand(opts))
	cmd.AddCommand(newBrowseCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("hxnav version " + version + "\n"))
			return err
		},
	}
}
