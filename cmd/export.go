package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/rollcall/internal/store"
	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <roll_no>",
	Short: "Write a student's raw sample batch (n x 7500 bytes)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), args[0], exportOut)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "-", "Output file, or - for stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(ctx context.Context, rollNo, out string) error {
	data, st, err := Repo.FaceData(ctx, rollNo)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no student with roll number %q", rollNo)
		}
		return fmt.Errorf("load face data: %w", err)
	}

	var w io.Writer = resultOut
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write face data: %w", err)
	}

	fmt.Fprintf(os.Stderr, "📦 %s (%s): shape (%d, %d)\n", st.Name, st.RollNo, st.Samples, st.Dimension)
	return nil
}
