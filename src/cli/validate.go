package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"relaybot/src/backup"
)

func newValidateCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "validate <snapshot-file>",
		Short: "Check a snapshot's structure and checksums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			result := backup.VerifyPath(app.store, args[0])
			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			case "table", "":
				if result.Valid {
					fmt.Fprintln(stdout, "valid")
				} else {
					for _, issue := range result.Issues {
						fmt.Fprintf(stdout, "issue: %s\n", issue)
					}
				}
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
			if !result.Valid {
				return fmt.Errorf("snapshot failed validation with %d issue(s)", len(result.Issues))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	cmd.Flags().String("target", "", "Snapshot directory target URI (e.g., dir:/path); overrides the config")
	return cmd
}
