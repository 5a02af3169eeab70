package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ClauseIQ-Intelligence/pkg/client"
)

// NewRecordsCmd creates the records command group.
func NewRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and manage stored parse records",
	}

	cmd.AddCommand(
		newRecordsListCmd(),
		newRecordsGetCmd(),
		newRecordsDeleteCmd(),
	)

	return cmd
}

// recordTable adapts a record listing for table output.
type recordTable struct {
	*client.RecordList
}

func (t recordTable) TableHeaders() []string {
	return []string{"ID", "CATEGORY", "AMOUNT TYPE", "CONFIDENCE", "STATUS", "PARSED AT"}
}

func (t recordTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t.Records))
	for _, rec := range t.Records {
		rows = append(rows, []string{
			string(rec.ID),
			string(rec.Category),
			rec.AmountType,
			strconv.FormatFloat(rec.OverallConfidence, 'f', 2, 64),
			string(rec.Status),
			rec.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func newRecordsListCmd() *cobra.Command {
	opts := &client.ListRecordsOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored parse records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Client == nil {
				return fmt.Errorf("no API server configured; use --server")
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			list, err := cliCtx.Client.Parse().ListRecords(ctx, opts)
			if err != nil {
				return err
			}
			return PrintResult(cmd, recordTable{list})
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "filter by coverage category")
	cmd.Flags().StringVar(&opts.AmountType, "amount-type", "", "filter by payout amount type")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by review status (pending, confirmed, corrected)")
	cmd.Flags().Float64Var(&opts.MinConfidence, "min-confidence", 0, "minimum overall confidence")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "page size")

	return cmd
}

func newRecordsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <record-id>",
		Short: "Show a stored parse record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Client == nil {
				return fmt.Errorf("no API server configured; use --server")
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			rec, err := cliCtx.Client.Parse().GetRecord(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, rec)
		},
	}
}

func newRecordsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a stored parse record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.Client == nil {
				return fmt.Errorf("no API server configured; use --server")
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			if err := cliCtx.Client.Parse().DeleteRecord(ctx, args[0]); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("deleted record %s", args[0]))
			return nil
		},
	}
}
