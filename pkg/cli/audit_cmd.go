package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuditCmd(client *Client, output *string) *cobra.Command {
	var q AuditQuery

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List audit ledger entries (Admin and Manager only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := client.Audit(q)
			if err != nil {
				return err
			}
			if *output == "json" {
				printJSON(cmd.OutOrStdout(), resp)
				return nil
			}

			columns := []string{"SEQ", "PRINCIPAL", "ROLE", "ACTION", "STATUS", "ROWS", "EXECUTED AT", "SQL"}
			rows := make([][]interface{}, len(resp.Entries))
			for i, e := range resp.Entries {
				rows[i] = []interface{}{
					e.SequenceID, e.PrincipalID, e.PrincipalRole, e.ActionType,
					e.OutcomeStatus, e.AffectedRows, e.ExecutedAt, e.GeneratedSQL,
				}
			}
			printTable(cmd.OutOrStdout(), columns, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d entries\n", len(resp.Entries), resp.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&q.PrincipalID, "principal", "", "Filter by principal ID")
	cmd.Flags().StringVar(&q.ActionType, "action", "", "Filter by action type (e.g. SELECT, DELETE_BLOCKED)")
	cmd.Flags().StringVar(&q.Status, "status", "", "Filter by outcome status (SUCCESS, FAILED, DENIED)")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "Page size (default 50)")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "Page offset")

	return cmd
}

func newSchemaCmd(client *Client, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the governed dataset's table definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := client.Schema()
			if err != nil {
				return err
			}
			if *output == "json" {
				printJSON(cmd.OutOrStdout(), resp)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset: %s\n\n%s\n", resp.Dataset, resp.Schema)
			return nil
		},
	}
}
