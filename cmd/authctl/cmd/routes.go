package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/authcode/authcode-go/internal/ui"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the view routes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, rt := range ui.Routes() {
			fmt.Fprintf(out, "%-18s %s\n", ui.Href(rt.Path), rt.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
