package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opensensing/pushdash/internal/apiclient"
	"github.com/opensensing/pushdash/internal/config"
)

func newSensorCommand(logger *slog.Logger) *cobra.Command {
	_ = logger
	var (
		sensorID   int64
		page       int
		timeoutSec int
	)

	cmd := &cobra.Command{
		Use:   "sensor",
		Short: "Show a sensor and its recent values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sensorID < 1 {
				return fmt.Errorf("--id is required")
			}

			ctx, cancel := context.WithTimeout(context.Background(), boundedTimeout(timeoutSec))
			defer cancel()

			client, sessions, err := newClient(ctx, config.FromEnv())
			if err != nil {
				return err
			}
			defer sessions.Close()

			var (
				sensor apiclient.SensorRow
				values apiclient.SensorValuesPage
			)
			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(func() error {
				fetched, err := client.Sensor(groupCtx, sensorID)
				sensor = fetched
				return err
			})
			group.Go(func() error {
				fetched, err := client.SensorValues(groupCtx, sensorID, page)
				values = fetched
				return err
			})
			if err := group.Wait(); err != nil {
				return friendlyAuthErr(err)
			}

			cmd.Printf("%s (id %d, channel %s)\n", sensor.Name, sensor.ID, sensor.ChannelName)
			if len(values.Rows) == 0 {
				cmd.Println("No recorded values")
				return nil
			}
			for _, value := range values.Rows {
				cmd.Printf("%-22s %s\n", value.CreatedAt.Format("2006-01-02 15:04:05"), value.Value)
			}
			cmd.Printf("page %d/%d, %s values\n",
				values.Pagination.CurrentPage,
				values.Pagination.TotalPages,
				humanize.Comma(int64(values.Pagination.TotalEntries)),
			)
			return nil
		},
	}
	cmd.Flags().Int64Var(&sensorID, "id", 0, "sensor id")
	cmd.Flags().IntVar(&page, "page", 1, "value page (1-based)")
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 30, "request timeout in seconds")
	return cmd
}
