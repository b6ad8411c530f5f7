package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/authcode/authcode-go/internal/ui"
)

var (
	resetForm ui.ResetForm
	resetWait bool
)

var forgotCmd = &cobra.Command{
	Use:   "forgot",
	Short: "Send a reset code and set a new password",
}

var forgotSendCmd = &cobra.Command{
	Use:     "send-code",
	Short:   "Email a password reset code",
	Example: `  authctl forgot send-code --email me@example.com`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		router := newRouter(cmd)
		defer router.Close()

		view, err := ui.ActiveAs[*ui.ForgotPassword](router, ui.PathForgotPassword)
		if err != nil {
			return err
		}
		view.Form = resetForm

		out := cmd.OutOrStdout()
		done := watchCooldown(out, view.Cooldown())
		if err := view.SendCode(cmd.Context()); err != nil {
			return err
		}
		if view.Error == "" {
			fmt.Fprintf(out, "if %s is registered, a code is on its way\n", resetForm.Email)
		}
		reportCooldown(cmd.Context(), out, view.Cooldown(), done, resetWait && view.Error == "")
		return viewError(view.Error)
	},
}

var forgotResetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Set a new password with an emailed code",
	Example: `  authctl forgot reset --email me@example.com --code 123456 --new-password n3w-pass --confirm-password n3w-pass`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		router := newRouter(cmd)
		defer router.Close()

		view, err := ui.ActiveAs[*ui.ForgotPassword](router, ui.PathForgotPassword)
		if err != nil {
			return err
		}
		view.Form = resetForm
		if err := view.ResetPassword(cmd.Context()); err != nil {
			return err
		}
		return viewError(view.Error)
	},
}

func init() {
	forgotSendCmd.Flags().StringVar(&resetForm.Email, "email", "", "Account email")
	forgotSendCmd.Flags().BoolVar(&resetWait, "wait", false, "Wait for the resend cooldown to finish")

	forgotResetCmd.Flags().StringVar(&resetForm.Email, "email", "", "Account email")
	forgotResetCmd.Flags().StringVar(&resetForm.Code, "code", "", "Six digit code from the email")
	forgotResetCmd.Flags().StringVar(&resetForm.NewPassword, "new-password", "", "New password")
	forgotResetCmd.Flags().StringVar(&resetForm.ConfirmPassword, "confirm-password", "", "New password again")

	forgotCmd.AddCommand(forgotSendCmd, forgotResetCmd)
	rootCmd.AddCommand(forgotCmd)
}
