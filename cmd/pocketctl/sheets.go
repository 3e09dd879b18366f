package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"pocket/internal/cli"
	"pocket/internal/config"
	"pocket/internal/sheets/google"
)

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Google Sheets sync helpers",
	}
	cmd.AddCommand(sheetsLoginCmd())
	cmd.AddCommand(sheetsPushCmd())
	return cmd
}

func sheetsPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Rewrite every stored record so the sync worker uploads it again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				a.tracker.PersistAll()
				msg := "Queued expenses, categories and profile for upload"
				if a.amqp == nil {
					msg += " (the worker picks them up on its next sweep)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("%s", msg))
				return nil
			})
		},
	}
}

func sheetsLoginCmd() *cobra.Command {
	var (
		port    string
		output  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize access to your spreadsheet and save the OAuth token",
		Long: "Runs the OAuth consent flow for the client in GOOGLE_OAUTH_CLIENT_JSON or\n" +
			"GOOGLE_OAUTH_CLIENT_FILE. The redirect URI http://127.0.0.1:<port>/callback\n" +
			"must be allowed for that client.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli.LoadEnvFile()
			cfg := config.Load()

			oauthCfg, err := google.OAuthConfig(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
			if err != nil {
				return fmt.Errorf("%w (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)", err)
			}
			if output == "" {
				output = cfg.GoogleOAuthTokenFile
			}

			ln, err := net.Listen("tcp", "127.0.0.1:"+port)
			if err != nil {
				return fmt.Errorf("listen for redirect: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			tok, err := google.Login(ctx, oauthCfg, ln, func(authURL string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", cli.TitleStyle.Render("Open this URL to authorize:"), authURL)
			})
			if err != nil {
				return err
			}
			if err := google.SaveToken(output, tok); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Saved token to %s", output))
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "8085", "local port for the OAuth redirect")
	cmd.Flags().StringVarP(&output, "output", "o", "", "token file (defaults to GOOGLE_OAUTH_TOKEN_FILE)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for consent")
	return cmd
}
