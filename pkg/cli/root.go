// Package cli implements the qgate command-line client for the query
// gateway API.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{"error": err.Error()}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				errObj["http_status"] = apiErr.HTTPStatus
				if apiErr.Risk != "" {
					errObj["risk"] = apiErr.Risk
				}
				if apiErr.Executed != nil {
					errObj["executed"] = *apiErr.Executed
				}
			}
			printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		host   string
		token  string
		output string
	)

	rootCmd := &cobra.Command{
		Use:           "qgate",
		Short:         "Query gateway CLI",
		Long:          "Command-line client for the natural-language query gateway API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "API host URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "JWT session token")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")

	client := NewClient(host, token)

	// Precedence: flag > environment > default.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if !cmd.Flags().Changed("host") {
			if v := os.Getenv("QGATE_HOST"); v != "" {
				host = v
			}
		}
		if !cmd.Flags().Changed("token") {
			if v := os.Getenv("QGATE_TOKEN"); v != "" {
				token = v
			}
		}
		if output != "table" && output != "json" {
			return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
		}
		client.BaseURL = host
		client.Token = token
		return nil
	}

	rootCmd.AddCommand(newLoginCmd(client, &output))
	rootCmd.AddCommand(newAskCmd(client, &output))
	rootCmd.AddCommand(newConfirmCmd(client, &output))
	rootCmd.AddCommand(newRejectCmd(client))
	rootCmd.AddCommand(newAuditCmd(client, &output))
	rootCmd.AddCommand(newSchemaCmd(client, &output))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
