// Package cli wires the pushdash commands: the interactive console plus
// scriptable subcommands for sessions and push schedule management.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/opensensing/pushdash/internal/apiclient"
	"github.com/opensensing/pushdash/internal/config"
	"github.com/opensensing/pushdash/internal/store"
	"github.com/opensensing/pushdash/internal/tui"
)

const version = "0.1.0"

func NewRoot(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "pushdash",
		Short: "pushdash manages sensor push schedules on an open sensing backend",
	}

	root.AddCommand(newTUICommand(logger))
	root.AddCommand(newLoginCommand(logger))
	root.AddCommand(newLogoutCommand(logger))
	root.AddCommand(newPushCommand(logger))
	root.AddCommand(newSensorCommand(logger))
	root.AddCommand(newStatusCommand(logger))
	root.AddCommand(newWhoamiCommand(logger))
	root.AddCommand(newVersionCommand())

	return root
}

func newTUICommand(logger *slog.Logger) *cobra.Command {
	var sensorID int64

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive push schedule console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(config.FromEnv(), logger, sensorID)
		},
	}
	cmd.Flags().Int64Var(&sensorID, "sensor-id", 0, "open the push manager for this sensor directly")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}

// newClient builds the API client and restores the persisted session for the
// configured backend, when one exists.
func newClient(ctx context.Context, cfg config.Config) (*apiclient.Client, *store.Store, error) {
	client, err := apiclient.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	if err := sessions.AutoMigrate(ctx); err != nil {
		sessions.Close()
		return nil, nil, err
	}
	if session, err := sessions.LoadSession(ctx, cfg.APIURL); err == nil {
		client.RestoreSession(session.Cookies)
	}
	return client, sessions, nil
}

// friendlyAuthErr turns a backend 401 into an actionable message for
// non-interactive commands.
func friendlyAuthErr(err error) error {
	if apiclient.IsUnauthorized(err) {
		return fmt.Errorf("not logged in: run 'pushdash login' first")
	}
	return err
}

func boundedTimeout(input int) time.Duration {
	if input < 1 {
		input = 30
	}
	if input > 600 {
		input = 600
	}
	return time.Duration(input) * time.Second
}
