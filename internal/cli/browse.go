package cli

import (
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/store"
	"github.com/taskdeck/taskdeck/internal/tui"
)

var (
	browseConfigPath string
	browseDBPath     string
	browseOwner      string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse an owner's projects in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(browseConfigPath)
		if err != nil {
			return err
		}
		if browseDBPath != "" {
			cfg.Database.Path = browseDBPath
		}

		st, err := store.OpenSQLite(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		return tui.Run(st, browseOwner)
	},
}

func init() {
	browseCmd.Flags().StringVarP(&browseConfigPath, "config", "c", "", "path to config file")
	browseCmd.Flags().StringVar(&browseDBPath, "db", "", "sqlite database path (overrides config)")
	browseCmd.Flags().StringVar(&browseOwner, "owner", "", "owner ID whose projects to browse")
	_ = browseCmd.MarkFlagRequired("owner")
}
