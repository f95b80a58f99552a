package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opensensing/pushdash/internal/apiclient"
	"github.com/opensensing/pushdash/internal/catalog"
	"github.com/opensensing/pushdash/internal/config"
	"github.com/opensensing/pushdash/internal/interval"
	"github.com/opensensing/pushdash/internal/pushform"
)

func newPushCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Manage the push schedule of a sensor",
	}
	cmd.AddCommand(newPushListCommand(logger))
	cmd.AddCommand(newPushSetCommand(logger))
	cmd.AddCommand(newPushDeleteCommand(logger))
	return cmd
}

func newPushListCommand(logger *slog.Logger) *cobra.Command {
	_ = logger
	var (
		sensorID   int64
		page       int
		timeoutSec int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the push settings of a sensor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sensorID < 1 {
				return fmt.Errorf("--sensor-id is required")
			}

			ctx, cancel := context.WithTimeout(context.Background(), boundedTimeout(timeoutSec))
			defer cancel()

			client, sessions, err := newClient(ctx, config.FromEnv())
			if err != nil {
				return err
			}
			defer sessions.Close()

			// The catalog and the page are independent reads.
			var (
				cat    *catalog.Catalog
				result apiclient.PushSettingsPage
			)
			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(func() error {
				loaded, err := catalog.Load(groupCtx, client)
				cat = loaded
				return err
			})
			group.Go(func() error {
				fetched, err := client.PushSettings(groupCtx, sensorID, page)
				result = fetched
				return err
			})
			if err := group.Wait(); err != nil {
				return friendlyAuthErr(err)
			}

			if len(result.Rows) == 0 {
				cmd.Printf("No push settings configured for sensor %d\n", sensorID)
				return nil
			}

			cmd.Printf("%-6s %-36s %-8s %-12s %-16s %s\n", "ID", "TARGET", "STATUS", "INTERVAL", "LAST PUSH", "TOTAL")
			for _, rule := range result.Rows {
				status := "paused"
				if rule.Active {
					status = "active"
				}
				cmd.Printf("%-6d %-36s %-8s %-12s %-16s %s\n",
					rule.ID,
					cat.ResolveTarget(rule.TargetDeviceID, rule.TargetSensorID).Title(),
					status,
					interval.Format(rule.PushInterval),
					formatLastPush(rule.LastPushTime),
					humanize.Comma(rule.PushedCount),
				)
			}
			cmd.Printf("page %d/%d, %s entries\n",
				result.Pagination.CurrentPage,
				result.Pagination.TotalPages,
				humanize.Comma(int64(result.Pagination.TotalEntries)),
			)
			return nil
		},
	}
	cmd.Flags().Int64Var(&sensorID, "sensor-id", 0, "source sensor id")
	cmd.Flags().IntVar(&page, "page", 1, "result page (1-based)")
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 30, "request timeout in seconds")
	return cmd
}

func newPushSetCommand(logger *slog.Logger) *cobra.Command {
	var (
		sensorID     int64
		recordID     int64
		targetDevice string
		targetSensor string
		intervalMin  int
		active       bool
		originalTime bool
		timeoutSec   int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update a push setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sensorID < 1 {
				return fmt.Errorf("--sensor-id is required")
			}

			ctx, cancel := context.WithTimeout(context.Background(), boundedTimeout(timeoutSec))
			defer cancel()

			client, sessions, err := newClient(ctx, config.FromEnv())
			if err != nil {
				return err
			}
			defer sessions.Close()

			cat, err := catalog.Load(ctx, client)
			if err != nil {
				return friendlyAuthErr(err)
			}

			form := pushform.New(client, sensorID, logger)
			form.SelectTarget(cat.ResolveTarget(strings.TrimSpace(targetDevice), strings.TrimSpace(targetSensor)))
			if !form.SetIntervalMinutes(intervalMin) {
				return fmt.Errorf("invalid interval %d; allowed values: %s", intervalMin, allowedIntervals())
			}
			form.Draft.Active = active
			form.Draft.UseOriginalTime = originalTime
			if recordID > 0 {
				form.Draft.EditMode = true
				form.Draft.RecordID = recordID
			}

			if err := form.Save(ctx); err != nil {
				if err == pushform.ErrTargetRequired {
					return fmt.Errorf("--target-device and --target-sensor are required")
				}
				return friendlyAuthErr(err)
			}

			if recordID > 0 {
				cmd.Printf("Updated push setting %d on sensor %d\n", recordID, sensorID)
			} else {
				cmd.Printf("Created push setting on sensor %d (%s every %s)\n",
					sensorID, form.Draft.Target.Title(), interval.Format(form.Draft.IntervalMinutes))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&sensorID, "sensor-id", 0, "source sensor id")
	cmd.Flags().Int64Var(&recordID, "id", 0, "existing setting id to update (omit to create)")
	cmd.Flags().StringVar(&targetDevice, "target-device", "", "target device id")
	cmd.Flags().StringVar(&targetSensor, "target-sensor", "", "target sensor id")
	cmd.Flags().IntVar(&intervalMin, "interval", 10, "push interval in minutes")
	cmd.Flags().BoolVar(&active, "active", true, "whether the setting is active")
	cmd.Flags().BoolVar(&originalTime, "original-time", false, "forward the original measurement timestamp")
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 30, "request timeout in seconds")
	return cmd
}

func newPushDeleteCommand(logger *slog.Logger) *cobra.Command {
	_ = logger
	var (
		sensorID   int64
		recordID   int64
		yes        bool
		timeoutSec int
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a push setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sensorID < 1 || recordID < 1 {
				return fmt.Errorf("--sensor-id and --id are required")
			}

			if !yes {
				answer, err := promptLine(cmd, "Do you really want to delete this setting? (y/N): ")
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					cmd.Println("Aborted")
					return nil
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), boundedTimeout(timeoutSec))
			defer cancel()

			client, sessions, err := newClient(ctx, config.FromEnv())
			if err != nil {
				return err
			}
			defer sessions.Close()

			if err := client.DeletePushSettings(ctx, sensorID, recordID); err != nil {
				return friendlyAuthErr(err)
			}
			cmd.Printf("Deleted push setting %d on sensor %d\n", recordID, sensorID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&sensorID, "sensor-id", 0, "source sensor id")
	cmd.Flags().Int64Var(&recordID, "id", 0, "push setting id")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 30, "request timeout in seconds")
	return cmd
}

func newStatusCommand(logger *slog.Logger) *cobra.Command {
	_ = logger
	var timeoutSec int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the backend's collection status and totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), boundedTimeout(timeoutSec))
			defer cancel()

			client, sessions, err := newClient(ctx, config.FromEnv())
			if err != nil {
				return err
			}
			defer sessions.Close()

			var (
				status apiclient.CollectionStatus
				stats  apiclient.CollectionStatistics
			)
			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(func() error {
				fetched, err := client.CollectionStatus(groupCtx)
				status = fetched
				return err
			})
			group.Go(func() error {
				fetched, err := client.CollectionStatistics(groupCtx)
				stats = fetched
				return err
			})
			if err := group.Wait(); err != nil {
				return friendlyAuthErr(err)
			}

			cmd.Printf("channels running:  %v\n", status.ChannelsRunning)
			cmd.Printf("sensors running:   %v (%.0f%%)\n", status.SensorsRunning, status.SensorsProgress*100)
			cmd.Printf("last extraction:   %s\n", formatExtractionTime(status.LastExtractionTime))
			cmd.Printf("last run pulled:   %s channels, %s sensors, %s values\n",
				humanize.Comma(status.NewExtractedChannels),
				humanize.Comma(status.NewExtractedSensors),
				humanize.Comma(status.NewExtractedSensorValues),
			)
			cmd.Printf("totals:            %s channels, %s sensors, %s values\n",
				humanize.Comma(stats.TotalChannels),
				humanize.Comma(stats.TotalSensors),
				humanize.Comma(stats.TotalSensorValues),
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 30, "request timeout in seconds")
	return cmd
}

func allowedIntervals() string {
	marks := interval.Marks()
	values := make([]string, 0, len(marks))
	for _, mark := range marks {
		values = append(values, strconv.Itoa(mark.RealMinutes))
	}
	return strings.Join(values, ", ")
}

func formatLastPush(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return humanize.Time(*t)
}

func formatExtractionTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
