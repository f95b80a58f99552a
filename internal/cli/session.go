package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opensensing/pushdash/internal/config"
)

func newLoginCommand(logger *slog.Logger) *cobra.Command {
	var (
		username   string
		password   string
		timeoutSec int
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the backend and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()

			if strings.TrimSpace(username) == "" {
				value, err := promptLine(cmd, "username: ")
				if err != nil {
					return err
				}
				username = value
			}
			if password == "" {
				value, err := promptLine(cmd, "password: ")
				if err != nil {
					return err
				}
				password = value
			}
			if strings.TrimSpace(username) == "" || password == "" {
				return fmt.Errorf("username and password are required")
			}

			ctx, cancel := context.WithTimeout(context.Background(), boundedTimeout(timeoutSec))
			defer cancel()

			client, sessions, err := newClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer sessions.Close()

			if _, err := client.Login(ctx, username, password); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := sessions.SaveSession(ctx, cfg.APIURL, username, client.SessionCookies()); err != nil {
				logger.Warn("persist session failed", "error", err)
			}

			cmd.Printf("Logged in to %s as %s\n", cfg.APIURL, username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "backend username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "backend password (prompted when omitted)")
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 30, "request timeout in seconds")
	return cmd
}

func newLogoutCommand(logger *slog.Logger) *cobra.Command {
	var timeoutSec int

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the backend session and drop the persisted cookies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()

			ctx, cancel := context.WithTimeout(context.Background(), boundedTimeout(timeoutSec))
			defer cancel()

			client, sessions, err := newClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer sessions.Close()

			if err := client.Logout(ctx); err != nil {
				// The server-side session may already be gone; the local one
				// still gets cleared.
				logger.Warn("backend logout failed", "error", err)
			}
			if err := sessions.ClearSession(ctx, cfg.APIURL); err != nil {
				return err
			}
			cmd.Println("Logged out")
			return nil
		},
	}
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 30, "request timeout in seconds")
	return cmd
}

func newWhoamiCommand(logger *slog.Logger) *cobra.Command {
	_ = logger
	var timeoutSec int

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the owner of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()

			ctx, cancel := context.WithTimeout(context.Background(), boundedTimeout(timeoutSec))
			defer cancel()

			client, sessions, err := newClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer sessions.Close()

			user, err := client.CurrentUser(ctx)
			if err != nil {
				return friendlyAuthErr(err)
			}
			cmd.Printf("%s @ %s\n", user.Username, cfg.APIURL)
			return nil
		},
	}
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 30, "request timeout in seconds")
	return cmd
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no input")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
