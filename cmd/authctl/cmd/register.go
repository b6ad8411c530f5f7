package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/authcode/authcode-go/internal/ui"
)

var (
	registerForm ui.RegisterForm
	registerWait bool
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Send a registration code and create the account",
}

var registerSendCmd = &cobra.Command{
	Use:   "send-code",
	Short: "Email a registration code",
	Example: `  authctl register send-code --email me@example.com --password hunter22 --confirm-password hunter22
  authctl register send-code --email me@example.com --password hunter22 --confirm-password hunter22 --wait`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		router := newRouter(cmd)
		defer router.Close()

		view, err := ui.ActiveAs[*ui.Register](router, ui.PathRegister)
		if err != nil {
			return err
		}
		view.Form = registerForm

		out := cmd.OutOrStdout()
		done := watchCooldown(out, view.Cooldown())
		if err := view.SendCode(cmd.Context()); err != nil {
			return err
		}
		if view.Error == "" {
			fmt.Fprintf(out, "code sent to %s\n", registerForm.Email)
		}
		reportCooldown(cmd.Context(), out, view.Cooldown(), done, registerWait && view.Error == "")
		return viewError(view.Error)
	},
}

var registerVerifyCmd = &cobra.Command{
	Use:     "verify",
	Short:   "Create the account with an emailed code",
	Example: `  authctl register verify --email me@example.com --code 123456`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		router := newRouter(cmd)
		defer router.Close()

		view, err := ui.ActiveAs[*ui.Register](router, ui.PathRegister)
		if err != nil {
			return err
		}
		view.Form = registerForm
		if err := view.VerifyCode(cmd.Context()); err != nil {
			return err
		}
		return viewError(view.Error)
	},
}

func init() {
	registerSendCmd.Flags().StringVar(&registerForm.Email, "email", "", "Account email")
	registerSendCmd.Flags().StringVar(&registerForm.Password, "password", "", "New password")
	registerSendCmd.Flags().StringVar(&registerForm.ConfirmPassword, "confirm-password", "", "New password again")
	registerSendCmd.Flags().BoolVar(&registerWait, "wait", false, "Wait for the resend cooldown to finish")

	registerVerifyCmd.Flags().StringVar(&registerForm.Email, "email", "", "Account email")
	registerVerifyCmd.Flags().StringVar(&registerForm.Code, "code", "", "Six digit code from the email")

	registerCmd.AddCommand(registerSendCmd, registerVerifyCmd)
	rootCmd.AddCommand(registerCmd)
}
