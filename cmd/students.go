package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List all enrolled students",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStudents(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(studentsCmd)
}

func runStudents(ctx context.Context) error {
	students, err := Repo.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}

	if len(students) == 0 {
		fmt.Fprintln(resultOut, "No students enrolled.")
		return nil
	}

	w := tabwriter.NewWriter(resultOut, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ROLL NO\tNAME\tSAMPLES\tENROLLED")
	fmt.Fprintln(w, "-------\t----\t-------\t--------")

	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.RollNo, s.Name, s.Samples, s.EnrolledAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
