package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(client *Client, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <instruction>",
		Short: "Submit a natural-language instruction",
		Example: `  qgate ask "show all employees in Engineering"
  qgate ask "give Meera a 10% raise"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Submit(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if *output == "json" {
				printJSON(cmd.OutOrStdout(), resp)
				return nil
			}
			printInstructionResult(cmd, resp)
			return nil
		},
	}
}

func newConfirmCmd(client *Client, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "Execute the pending action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := client.Confirm()
			if err != nil {
				return err
			}
			if *output == "json" {
				printJSON(cmd.OutOrStdout(), resp)
				return nil
			}
			printInstructionResult(cmd, resp)
			return nil
		},
	}
}

func newRejectCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "reject",
		Short: "Discard the pending action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := client.Reject(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Pending action discarded.")
			return nil
		},
	}
}

func printInstructionResult(cmd *cobra.Command, resp *InstructionResponse) {
	out := cmd.OutOrStdout()
	switch resp.Outcome {
	case "ambiguous":
		fmt.Fprintf(out, "Needs clarification: %s\n", resp.ClarificationPrompt)
	case "pending_confirmation":
		fmt.Fprintf(out, "Generated SQL: %s\n", resp.GeneratedSQL)
		fmt.Fprintln(out, "This statement modifies data. Run 'qgate confirm' to execute or 'qgate reject' to discard.")
	default:
		if len(resp.Columns) > 0 {
			printTable(out, resp.Columns, resp.Rows)
		} else if resp.AffectedRows != nil {
			fmt.Fprintf(out, "OK, %d row(s) affected.\n", *resp.AffectedRows)
		}
	}
}
