package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/ClauseIQ-Intelligence/pkg/client"
)

// NewCorrectionsCmd creates the corrections command group.
func NewCorrectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "Submit and inspect reviewer corrections",
	}

	cmd.AddCommand(
		newCorrectionsSubmitCmd(),
		newCorrectionsListCmd(),
	)

	return cmd
}

// correctionSubmitOptions holds flags for corrections submit.
type correctionSubmitOptions struct {
	Field    string
	Confirm  bool
	Text     string
	Result   string
	Reviewer string
}

func newCorrectionsSubmitCmd() *cobra.Command {
	opts := &correctionSubmitOptions{}

	cmd := &cobra.Command{
		Use:   "submit <record-id>",
		Short: "File a correction or confirmation against a parse record",
		Example: `  clauseiq corrections submit rec-1 --field payout_amount --confirm
  clauseiq corrections submit rec-1 --field payout_amount \
      --text "给付基本保险金额的200%" \
      --result '{"type":"percentage","value":200,"base":"basic_sum_insured"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrectionsSubmit(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Field, "field", "", "extraction field the verdict applies to")
	cmd.Flags().BoolVar(&opts.Confirm, "confirm", false, "confirm the stored extraction as correct")
	cmd.Flags().StringVar(&opts.Text, "text", "", "corrected evidence text from the clause")
	cmd.Flags().StringVar(&opts.Result, "result", "", "corrected extraction result as JSON")
	cmd.Flags().StringVar(&opts.Reviewer, "reviewer", "", "reviewer identity")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}

func runCorrectionsSubmit(cmd *cobra.Command, opts *correctionSubmitOptions, recordID string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if cliCtx.Client == nil {
		return fmt.Errorf("no API server configured; use --server")
	}

	req := &client.CorrectionRequest{
		Field:         opts.Field,
		Confirmed:     opts.Confirm,
		CorrectedText: opts.Text,
		Reviewer:      opts.Reviewer,
	}
	if opts.Result != "" {
		if !json.Valid([]byte(opts.Result)) {
			return fmt.Errorf("--result must be valid JSON")
		}
		req.CorrectedResult = json.RawMessage(opts.Result)
	}

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	correction, err := cliCtx.Client.Reviews().Submit(ctx, recordID, req)
	if err != nil {
		return err
	}

	PrintSuccess(cmd, fmt.Sprintf("correction %s accepted", correction.ID))
	return PrintResult(cmd, correction)
}

func newCorrectionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <record-id>",
		Short: "List corrections filed against a parse record",
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

			corrections, err := cliCtx.Client.Reviews().List(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, corrections)
		},
	}
}
