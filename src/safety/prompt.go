// Package safety holds the confirmation gate used before destructive
// operations (clearing tables, deleting snapshots).
package safety

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Options mirror the CLI's persistent safety flags.
type Options struct {
	DryRun bool
	Yes    bool
	Force  bool
}

// Confirm prompts the user to confirm a potentially destructive action.
// - If opts.Yes or opts.Force is true, it returns true without prompting.
// - If opts.DryRun is true, it returns false with no error (no action
//   should be taken).
// The caller decides what to do with the result.
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	if opts.DryRun {
		return false, nil
	}
	if opts.Yes || opts.Force {
		return true, nil
	}
	if out != nil {
		fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
	}
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	ans := strings.TrimSpace(strings.ToLower(line))
	return ans == "y" || ans == "yes", nil
}
