package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"relaybot/src/backend"
	"relaybot/src/backup"
)

func newPruneCmd(stdout, stderr io.Writer) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old full snapshots beyond the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep <= 0 {
				return errors.New("--keep must be > 0")
			}
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			entries, err := app.store.List()
			if err != nil {
				return err
			}
			candidates := prunePlan(entries, keep)

			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tTIMESTAMP\tPATH\tACTION")
			for _, e := range candidates {
				fmt.Fprintf(tw, "%s\t%s\t%s\tdelete\n", e.Kind, e.Timestamp, e.Path)
			}
			tw.Flush()

			opts := getSafetyOptions(cmd)
			if opts.DryRun || len(candidates) == 0 {
				return nil
			}
			ok, err := safetyConfirm(cmd, stdout, fmt.Sprintf("Delete %d snapshot(s)?", len(candidates)))
			if err != nil || !ok {
				return err
			}
			deleted, err := backup.Prune(app.store, app.log, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Deleted %d snapshot(s)\n", len(deleted))
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 3, "Number of recent full snapshots to keep")
	cmd.Flags().String("target", "", "Snapshot directory target URI (e.g., dir:/path); overrides the config")
	return cmd
}

// prunePlan returns the full snapshots that fall outside the keep window,
// oldest first.
func prunePlan(entries []backend.Entry, keep int) []backend.Entry {
	var full []backend.Entry
	for _, e := range entries {
		if e.Kind == backend.KindFull {
			full = append(full, e)
		}
	}
	sort.Slice(full, func(i, j int) bool { return full[i].Timestamp < full[j].Timestamp })
	if len(full) <= keep {
		return nil
	}
	return full[:len(full)-keep]
}
