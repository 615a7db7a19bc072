package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/config"
	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
	"github.com/Magget135/Minimal-Quest-Log/internal/serverapp"
	"github.com/Magget135/Minimal-Quest-Log/internal/store"
)

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	verbose    bool

	cfg   *config.Config
	log   *logger.Logger
	clock calendar.Clock
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "questlog",
		Short:         "Quest Log: a gamified to-do list with recurring quests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			level := cfg.Log.Level
			if c.verbose {
				level = "debug"
			}
			log, err := logger.New(cfg.Log.Mode, level)
			if err != nil {
				return err
			}
			c.cfg, c.log = cfg, log
			if c.clock == nil {
				c.clock = calendar.RealClock{}
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				c.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath, "path to the YAML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newServeCmd(c),
		newMaterializeCmd(c),
		newExportICSCmd(c),
		newHolidaysCmd(c),
		newBackupCmd(c),
		newRestoreCmd(c),
		newDrillCmd(c),
	)
	return root
}

func (c *cli) openStores() (*store.Stores, error) {
	return store.Open(c.cfg.Storage, c.log)
}

// openApp opens the configured store and assembles the app on top of it.
// The caller closes the returned stores.
func (c *cli) openApp() (*serverapp.App, *store.Stores, error) {
	st, err := c.openStores()
	if err != nil {
		return nil, nil, err
	}
	app, err := serverapp.New(serverapp.Options{
		Config: c.cfg,
		Stores: st,
		Logger: c.log,
		Clock:  c.clock,
	})
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return app, st, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
