package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/brizzai/clgmart/internal/auth"
	"github.com/brizzai/clgmart/internal/auth/constants"
	"github.com/brizzai/clgmart/internal/auth/credentials"
	"github.com/brizzai/clgmart/internal/auth/models"
	"github.com/brizzai/clgmart/internal/browser"
	"github.com/brizzai/clgmart/internal/config"
	"github.com/brizzai/clgmart/internal/server"
	"github.com/brizzai/clgmart/internal/tui"
)

var errWebPlatform = errors.New("this command needs platform.kind=native, use \"clgmart serve\" for the web shell")

func newLoginCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an OAuth provider in the system browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *auth.Service) error {
				if svc.Environment().IsWeb() {
					return errWebPlatform
				}

				screen := &terminalScreen{}
				r := svc.NewResolver(screen, screen)
				defer r.Unmount()

				if outcome := r.Mount(ctx, ""); outcome.Kind == models.OutcomeAuthenticated {
					screen.render(outcome.Session)
					return nil
				}

				if provider == "" {
					provider = svc.Provider()
				}
				if err := svc.StartProviderOAuth(ctx, provider, browser.New()); err != nil {
					printAlert(constants.AlertOAuthError, models.Message(err, constants.FallbackStartMessage))
					return nil
				}

				var outcome models.Outcome
				err := wait(ctx, func(ctx context.Context) error {
					outcome = r.CheckSession(ctx)
					return nil
				})
				if err != nil {
					return err
				}
				screen.render(outcome.Session)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "OAuth provider, defaults to oauth.provider")
	return cmd
}

// newCallbackCmd handles the deep link the OS hands to the app after the provider redirect
func newCallbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "callback <url>",
		Short: "Finish sign-in from a returned callback URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *auth.Service) error {
				screen := &terminalScreen{}
				r := svc.NewResolver(screen, screen)
				defer r.Unmount()

				var outcome models.Outcome
				err := wait(ctx, func(ctx context.Context) error {
					outcome = r.Mount(ctx, args[0])
					return nil
				})
				if err != nil {
					return err
				}
				screen.render(outcome.Session)
				return nil
			})
		},
	}
}

func newSignInCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				values, err := tui.Prompt("Sign in to ClgMart", []tui.Field{
					{Label: "Email", Placeholder: "you@example.com", Value: email},
					{Label: "Password", Secret: true},
				})
				if err != nil {
					return err
				}
				email, password = values[0], values[1]
			}

			return withService(cmd.Context(), func(ctx context.Context, svc *auth.Service) error {
				session, err := svc.SignIn(ctx, email, password)
				if err != nil {
					title := constants.AlertSignInFailed
					if credentials.IsValidation(err) {
						title = constants.AlertError
					}
					printAlert(title, models.Message(err, constants.FallbackMessage))
					return nil
				}
				printSignedIn(session)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password, prompted for when empty")
	return cmd
}

func newSignUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := tui.Prompt("Create your ClgMart account", []tui.Field{
				{Label: "Full name"},
				{Label: "Phone", Placeholder: "+91 98765 43210"},
				{Label: "Email", Placeholder: "you@example.com"},
				{Label: "Password", Secret: true},
				{Label: "Confirm password", Secret: true},
			})
			if err != nil {
				return err
			}
			form := credentials.SignUpForm{
				FullName:        values[0],
				Phone:           values[1],
				Email:           values[2],
				Password:        values[3],
				ConfirmPassword: values[4],
			}

			return withService(cmd.Context(), func(ctx context.Context, svc *auth.Service) error {
				result, err := svc.SignUp(ctx, form)
				switch {
				case errors.Is(err, models.ErrEmailAlreadyRegistered):
					printAlert(constants.AlertEmailRegistered, err.Error())
				case credentials.IsValidation(err):
					printAlert(constants.AlertError, err.Error())
				case err != nil:
					printAlert(constants.AlertSignUpFailed, models.Message(err, constants.FallbackMessage))
				case result.Session != nil:
					printSignedIn(result.Session)
				default:
					pterm.Info.Printfln("%s: %s", constants.AlertVerifyEmail, constants.VerifyEmailMessage)
				}
				return nil
			})
		},
	}
}

func newResendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend <email>",
		Short: "Send the sign-up verification email again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *auth.Service) error {
				err := svc.ResendVerification(ctx, args[0])
				switch {
				case errors.Is(err, credentials.ErrInvalidEmail):
					printAlert(constants.AlertInvalidEmail, constants.InvalidResendMessage)
				case err != nil:
					printAlert(constants.AlertResendFailed, models.Message(err, constants.FallbackMessage))
				default:
					pterm.Success.Printfln("%s: %s", constants.AlertVerificationSent, constants.VerificationSentMessage)
				}
				return nil
			})
		},
	}
}

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the stored session, refreshing it when it is about to expire",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *auth.Service) error {
				session, err := svc.Session(ctx)
				if err != nil {
					return err
				}
				if !session.Authenticated() {
					pterm.Info.Println("No session")
					return nil
				}
				return printSession(session)
			})
		},
	}
}

func printSession(session *models.Session) error {
	data := pterm.TableData{
		{"Field", "Value"},
		{"User ID", session.User.ID},
		{"Email", session.User.Email},
	}
	if expiry := session.Expiry(); !expiry.IsZero() {
		data = append(data, []string{"Expires", fmt.Sprintf("%s (in %s)", expiry.Format(time.RFC3339), time.Until(expiry).Round(time.Second))})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Fetch the signed-in user from the auth API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *auth.Service) error {
				user, err := svc.User(ctx)
				if err != nil {
					return err
				}
				name, _ := user.UserMetadata["full_name"].(string)
				pterm.Info.Printfln("%s %s", pterm.LightGreen(user.Email), strings.TrimSpace(name))
				return nil
			})
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *auth.Service) error {
				if err := svc.SignOut(ctx); err != nil {
					return err
				}
				pterm.Success.Println("Signed out")
				return nil
			})
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Host the web sign-in screens and the OAuth callback",
		RunE: func(cmd *cobra.Command, args []string) error {
			webConfig(cfg)

			var srv *server.Server
			app := newApp(cfg, &srv)
			if err := app.Err(); err != nil {
				return fmt.Errorf("failed to build app: %w", err)
			}
			if err := app.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start app: %w", err)
			}
			defer func() { _ = app.Stop(context.Background()) }()

			pterm.Info.Printfln("Serving sign-in screens on %s", pterm.LightGreen(cfg.Platform.Origin))
			return srv.Start(cmd.Context())
		},
	}
}

// webConfig switches the loaded config to the web platform served on this host
func webConfig(cfg *config.Config) {
	cfg.Platform.Kind = config.PlatformWeb
	if cfg.Platform.Origin == "" {
		cfg.Platform.Origin = "http://" + cfg.ServerAddr()
	}
}
