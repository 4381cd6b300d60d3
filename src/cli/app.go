package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"relaybot/src/backend/directory"
	"relaybot/src/config"
	"relaybot/src/dbapi"
	"relaybot/src/target"
)

// app bundles the wired collaborators every command needs.
type app struct {
	cfg    *config.Config
	client *dbapi.SQLiteClient
	store  *directory.Backend
	log    *slog.Logger
}

// loadApp reads the config, opens the database, and wires the snapshot
// store. A --target flag on the command, when present and set, overrides the
// configured snapshot directory.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	dir := cfg.Backup.Dir
	if f := cmd.Flags().Lookup("target"); f != nil && f.Value.String() != "" {
		tgt, err := target.Parse(f.Value.String())
		if err != nil {
			return nil, err
		}
		dir = tgt.DirPath
	}
	store, err := directory.New(dir)
	if err != nil {
		return nil, err
	}
	client, err := dbapi.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	return &app{cfg: cfg, client: client, store: store, log: log}, nil
}

func (a *app) Close() {
	a.client.Close()
}
