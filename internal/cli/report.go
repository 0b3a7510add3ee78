package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report RUN_ID",
	Short: "Export the xlsx report of a batch run",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent batch runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)

	reportCmd.Flags().StringP("out", "o", "", "output file (default: report.output_dir)")
	runsCmd.Flags().Int("limit", 20, "number of runs to list")
}

func runReport(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("out")

	c, err := startApp(cmd)
	if err != nil {
		return err
	}
	reports := c.Services().Report

	if outPath == "" {
		path, err := reports.Export(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "Report written to %s\n", path)
		return nil
	}

	data, err := reports.Render(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(out(cmd), "Report written to %s\n", outPath)
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	c, err := startApp(cmd)
	if err != nil {
		return err
	}

	runs, err := c.Services().Report.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out(cmd), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTRIGGER\tSTARTED\tSUCCESS\tTICKETS\tLINKED\tERRORS")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%d\t%d\n",
			run.ID, run.Trigger, run.StartedAt.Local().Format(time.DateTime), run.Success, run.TicketCount, run.Linked, run.Failed)
	}
	return tw.Flush()
}
