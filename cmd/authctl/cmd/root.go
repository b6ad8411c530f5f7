package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/authcode/authcode-go/internal/client"
	"github.com/authcode/authcode-go/internal/ui"
)

const defaultAPI = "http://127.0.0.1:8080"

var apiURL string

var rootCmd = &cobra.Command{
	Use:   "authctl",
	Short: "Drive the auth views from a terminal",
	Long: `authctl runs the login, registration and password reset views against an
auth API, the same way the web shell does.

Available commands:
  login       Sign in with email and password
  register    Send a registration code and create the account
  forgot      Send a reset code and set a new password
  routes      List the view routes

The API address comes from --api, then AUTHCTL_API, then ` + defaultAPI + `.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if v := os.Getenv("AUTHCTL_API"); v != "" && !cmd.Flags().Changed("api") {
			apiURL = v
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultAPI, "Auth API base URL (env AUTHCTL_API)")
}

// printer shows alerts as plain lines.
type printer struct{ w io.Writer }

func (p printer) Alert(msg string) { fmt.Fprintln(p.w, msg) }

func newRouter(cmd *cobra.Command) *ui.Router {
	return ui.NewRouter(ui.Deps{
		API:    client.New(strings.TrimRight(apiURL, "/"), client.WithUserAgent("authctl/"+version)),
		Notify: printer{w: cmd.OutOrStdout()},
	})
}

// viewError turns a view's inline error into a command failure.
func viewError(msg string) error {
	if msg == "" {
		return nil
	}
	return fmt.Errorf("%s", msg)
}

// watchCooldown reports each tick of cd and returns a channel closed when it
// reaches zero. Register before sending so no tick is missed.
func watchCooldown(w io.Writer, cd *client.Cooldown) <-chan struct{} {
	done := make(chan struct{})
	cd.OnChange(func(n int) {
		if n > 0 {
			fmt.Fprintf(w, "%ds until resend\n", n)
			return
		}
		fmt.Fprintln(w, "ready to resend")
		close(done)
	})
	return done
}

// reportCooldown prints the remaining cooldown and, with wait, blocks until
// it ends or ctx is cancelled.
func reportCooldown(ctx context.Context, w io.Writer, cd *client.Cooldown, done <-chan struct{}, wait bool) {
	if !cd.Active() {
		return
	}
	fmt.Fprintf(w, "resend available in %ds\n", cd.Value())
	if !wait {
		cd.Stop()
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
		cd.Stop()
	}
}
