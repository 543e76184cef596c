package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CaioWing/filedrop/internal/client"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files on the server",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	entries, err := client.New(serverURL()).List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%s\t%s\n", e.Name, e.URL)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "(no files)")
	}
	return nil
}
