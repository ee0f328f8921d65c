package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(client *Client, output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login <employee-id>",
		Short: "Exchange an employee ID for a session token",
		Example: `  # Log in and export the token for later commands
  export QGATE_TOKEN=$(qgate login E002 -o json | jq -r .token)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Login(args[0])
			if err != nil {
				return err
			}
			if *output == "json" {
				printJSON(cmd.OutOrStdout(), resp)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.Name, resp.Role)
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}
}
