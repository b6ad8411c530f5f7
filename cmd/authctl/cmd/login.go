package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/authcode/authcode-go/internal/ui"
)

var loginForm ui.LoginForm

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Example: `  authctl login --email me@example.com --password hunter22`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		router := newRouter(cmd)
		defer router.Close()

		view, err := ui.ActiveAs[*ui.Login](router, ui.PathLogin)
		if err != nil {
			return err
		}
		view.Form = loginForm
		if err := view.Submit(cmd.Context()); err != nil {
			return err
		}
		if err := viewError(view.Error); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in, now at %s\n", router.Current())
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginForm.Email, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginForm.Password, "password", "", "Account password")
	rootCmd.AddCommand(loginCmd)
}
