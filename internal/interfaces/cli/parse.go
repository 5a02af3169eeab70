package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ClauseIQ-Intelligence/pkg/client"
)

// parseOptions holds flags for the parse command.
type parseOptions struct {
	Category string
	File     string
	Store    bool
}

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [clause text]",
		Short: "Parse insurance clause text into structured payout terms",
		Long:  "Parse submits clause text to the API server and prints the extracted\nstructure. By default the result is not stored; pass --store to keep a\nreviewable parse record.",
		Example: `  clauseiq parse --category disease "确诊重大疾病，给付基本保险金额的150%。"
  clauseiq parse --category death --file clause.txt --store`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "coverage category (disease, death, accident, medical, annuity)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read clause text from a file")
	cmd.Flags().BoolVar(&opts.Store, "store", false, "store the result as a reviewable parse record")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func runParse(cmd *cobra.Command, opts *parseOptions, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if cliCtx.Client == nil {
		return fmt.Errorf("no API server configured; use --server")
	}

	clauseText, err := readClauseText(opts, args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	store := opts.Store
	resp, err := cliCtx.Client.Parse().Parse(ctx, &client.ParseRequest{
		ClauseText: clauseText,
		Category:   opts.Category,
		Store:      &store,
	})
	if err != nil {
		return err
	}

	if resp.RecordID != "" {
		PrintSuccess(cmd, fmt.Sprintf("stored as record %s", resp.RecordID))
	}
	return PrintResult(cmd, resp)
}

// readClauseText resolves the clause text from the positional argument, the
// --file flag, or stdin, in that order.
func readClauseText(opts *parseOptions, args []string) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return "", fmt.Errorf("failed to read clause file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	return "", fmt.Errorf("clause text is required (argument, --file, or stdin)")
}
