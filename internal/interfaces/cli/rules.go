package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ClauseIQ-Intelligence/pkg/client"
)

// NewRulesCmd creates the rules command group.
func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and curate learned extraction rules",
	}

	cmd.AddCommand(
		newRulesListCmd(),
		newRulesGetCmd(),
		newRulesEnableCmd(true),
		newRulesEnableCmd(false),
	)

	return cmd
}

// ruleTable adapts a rule listing for table output.
type ruleTable struct {
	*client.RuleList
}

func (t ruleTable) TableHeaders() []string {
	return []string{"ID", "FIELD", "CATEGORY", "PRIORITY", "USES", "SUCCESS", "ENABLED"}
}

func (t ruleTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t.Rules))
	for _, rule := range t.Rules {
		rows = append(rows, []string{
			string(rule.ID),
			string(rule.Field),
			string(rule.Category),
			strconv.Itoa(rule.Priority),
			strconv.Itoa(rule.UsageCount),
			strconv.FormatFloat(rule.SuccessRate, 'f', 2, 64),
			strconv.FormatBool(rule.Enabled),
		})
	}
	return rows
}

func newRulesListCmd() *cobra.Command {
	opts := &client.ListRulesOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learned extraction rules",
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

			list, err := cliCtx.Client.Rules().List(ctx, opts)
			if err != nil {
				return err
			}
			return PrintResult(cmd, ruleTable{list})
		},
	}

	cmd.Flags().StringVar(&opts.Field, "field", "", "filter by extraction field")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "page size")

	return cmd
}

func newRulesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <rule-id>",
		Short: "Show a learned rule",
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

			rule, err := cliCtx.Client.Rules().Get(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, rule)
		},
	}
}

func newRulesEnableCmd(enable bool) *cobra.Command {
	use, short := "enable <rule-id>", "Enable a learned rule"
	if !enable {
		use, short = "disable <rule-id>", "Disable a learned rule"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
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

			if err := cliCtx.Client.Rules().SetEnabled(ctx, args[0], enable); err != nil {
				return err
			}

			state := "enabled"
			if !enable {
				state = "disabled"
			}
			PrintSuccess(cmd, fmt.Sprintf("rule %s %s", args[0], state))
			return nil
		},
	}
}
