package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garyjia/ap-invoice-intake/internal/application/service"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process tickets waiting in the new-invoices stage",
	Example: `  # Process every pending ticket
  invoicectl process

  # Process two specific tickets and export the report
  invoicectl process --ticket 12 --ticket 15 --export`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Int64Slice("ticket", nil, "ticket ID to process (repeatable)")
	processCmd.Flags().Int("limit", 0, "maximum number of tickets (default: pipeline.batch_limit)")
	processCmd.Flags().Bool("export", false, "write the xlsx report to report.output_dir")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ticketIDs, _ := cmd.Flags().GetInt64Slice("ticket")
	limit, _ := cmd.Flags().GetInt("limit")
	export, _ := cmd.Flags().GetBool("export")

	c, err := startApp(cmd)
	if err != nil {
		return err
	}
	services := c.Services()

	run, err := services.Batch.Run(cmd.Context(), service.BatchRequest{
		Trigger:   entity.RunTriggerCLI,
		TicketIDs: ticketIDs,
		Limit:     limit,
	})
	if run != nil {
		printRun(out(cmd), run)
	}
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	if export {
		path, err := services.Report.Export(cmd.Context(), run.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "\nReport written to %s\n", path)
	}
	return nil
}

func printRun(w io.Writer, run *entity.BatchRun) {
	fmt.Fprintf(w, "Run %s (%s) success=%t\n", run.ID, run.Trigger, run.Success)
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	fmt.Fprintf(w, "Tickets %d | linked %d | duplicates %d | no PDF %d | no valid PO %d | unknown PO %d | creation failed %d | errors %d\n",
		run.TicketCount, run.Linked, run.Duplicates, run.NoPDF, run.NoValidPO, run.POInexistent, run.CreationFailed, run.Failed)

	if len(run.Tickets) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nTICKET\tNAME\tSTAGE\tPO\tINVOICE\tREASON")
	for _, t := range run.Tickets {
		invoice := "-"
		if t.InvoiceID != nil {
			invoice = fmt.Sprintf("%d", *t.InvoiceID)
		}
		reason := t.Reason
		if t.Error != "" {
			reason = "error: " + t.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", t.TicketID, t.TicketName, t.Stage, t.PONumber, invoice, reason)
	}
	tw.Flush()
}
