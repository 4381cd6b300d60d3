package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"relaybot/src/backup"
)

func newBackupCmd(stdout, stderr io.Writer) *cobra.Command {
	var critical bool
	var description string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a snapshot of the configured tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			tables := app.cfg.TableNames()
			if critical {
				tables = app.cfg.CriticalTableNames()
				if len(tables) == 0 {
					return fmt.Errorf("no tables are marked critical in the config")
				}
			}

			opts := getSafetyOptions(cmd)
			if opts.DryRun {
				kind := "full"
				if critical {
					kind = "critical"
				}
				fmt.Fprintf(stdout, "Would create a %s backup of: %s\n", kind, strings.Join(tables, ", "))
				return nil
			}

			release, err := app.store.Lock()
			if err != nil {
				return err
			}
			defer release()

			builder := backup.NewBuilder(app.client, app.store, app.log)
			path, snap, err := builder.Build(tables, critical, description)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, path)

			total := 0
			for _, n := range snap.Metadata.RowCounts {
				total += n
			}
			if len(snap.Metadata.Tables) == 0 {
				fmt.Fprintln(stderr, "warning: every table export failed; the snapshot is empty")
			} else if total == 0 {
				fmt.Fprintln(stderr, "warning: snapshot contains zero rows")
			}

			if !critical {
				deleted, err := backup.Prune(app.store, app.log, app.cfg.Backup.Retention)
				if err != nil {
					fmt.Fprintf(stderr, "warning: retention pruning failed: %v\n", err)
				} else if len(deleted) > 0 {
					fmt.Fprintf(stderr, "pruned %d old snapshot(s)\n", len(deleted))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&critical, "critical", false, "Back up only the critical table subset")
	cmd.Flags().StringVar(&description, "description", "", "Free-form description stored in the snapshot metadata")
	cmd.Flags().String("target", "", "Snapshot directory target URI (e.g., dir:/path); overrides the config")
	return cmd
}
