package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/andresmejia3/rollcall/internal/store"
	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <roll_no> <name>",
	Short: "Change the name recorded for an enrolled student",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRename(cmd.Context(), args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

func runRename(ctx context.Context, rollNo, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name must not be blank")
	}

	if err := Repo.Rename(ctx, rollNo, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no student with roll number %q", rollNo)
		}
		return fmt.Errorf("rename student: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✅ Student %s renamed to '%s'\n", rollNo, name)
	return nil
}
