package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"relaybot/src/backup"
	"relaybot/src/restore"
)

func newRestoreCmd(stdout, stderr io.Writer) *cobra.Command {
	var clear bool
	var tables, skip []string
	var output string
	cmd := &cobra.Command{
		Use:   "restore <snapshot-file>",
		Short: "Restore tables from a snapshot into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			opts := getSafetyOptions(cmd)
			if opts.DryRun {
				fmt.Fprintf(stdout, "Would restore from %s (clear=%v)\n", file, clear)
				return nil
			}

			question := fmt.Sprintf("Restore from %s without clearing: rows with colliding identifiers will be overwritten by snapshot data. Continue?", file)
			if clear {
				question = fmt.Sprintf("Restore from %s will DELETE all existing rows of each restored table first. Continue?", file)
			}
			ok, err := safetyConfirm(cmd, stdout, question)
			if err != nil || !ok {
				return err
			}

			release, err := app.store.Lock()
			if err != nil {
				return err
			}
			defer release()

			builder := backup.NewBuilder(app.client, app.store, app.log)
			orch := restore.NewOrchestrator(app.client, app.store, builder,
				app.cfg.ConflictKeys(), app.cfg.TableNames(), app.log)
			report, err := orch.Restore(file, restore.Options{
				Clear: clear,
				Only:  tables,
				Skip:  skip,
			})
			if err != nil {
				return err
			}

			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "table", "":
				renderReport(stdout, report)
				return nil
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "Delete existing rows of each table before importing")
	cmd.Flags().StringSliceVar(&tables, "tables", nil, "Restore only these tables")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Skip these tables")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	cmd.Flags().String("target", "", "Snapshot directory target URI (e.g., dir:/path); overrides the config")
	return cmd
}

func renderReport(w io.Writer, r *restore.Report) {
	status := "partial"
	if r.Success() {
		status = "ok"
	} else if r.TablesRestored == 0 {
		status = "failed"
	}
	fmt.Fprintf(w, "Status: %s\n", status)
	fmt.Fprintf(w, "Tables restored: %d\n", r.TablesRestored)
	fmt.Fprintf(w, "Records restored: %d\n", r.RecordsRestored)
	if r.PreRestoreSnapshotPath != "" {
		fmt.Fprintf(w, "Safety-net snapshot: %s\n", r.PreRestoreSnapshotPath)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	if len(r.PerTableErrors) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TABLE\tERROR")
		names := make([]string, 0, len(r.PerTableErrors))
		for name := range r.PerTableErrors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%s\n", name, r.PerTableErrors[name])
		}
		tw.Flush()
	}
}

// safetyConfirm applies the global safety flags to one prompt.
func safetyConfirm(cmd *cobra.Command, stdout io.Writer, question string) (bool, error) {
	opts := getSafetyOptions(cmd)
	return confirmFunc(opts, os.Stdin, stdout, question)
}
