// Package pushform owns the in-progress push rule draft and issues the
// create, update and delete calls for it. One controller handles one source
// sensor; it is driven from a single goroutine (the UI loop).
package pushform

import (
	"context"
	"errors"
	"log/slog"

	"github.com/opensensing/pushdash/internal/apiclient"
	"github.com/opensensing/pushdash/internal/catalog"
	"github.com/opensensing/pushdash/internal/interval"
)

const (
	defaultIntervalMinutes = 10
	deletePrompt           = "Do you really want to delete this setting?"
)

// ErrTargetRequired is returned by Save when no target sensor is selected.
// No request is issued in that case; the draft and any previous error are
// left untouched.
var ErrTargetRequired = errors.New("target device and sensor must be selected")

// Client issues the mutation requests.
type Client interface {
	SavePushSettings(ctx context.Context, sensorID int64, rule apiclient.PushRule) (string, error)
	DeletePushSettings(ctx context.Context, sensorID, recordID int64) error
}

// Draft is the editable state of one push rule.
type Draft struct {
	Target          catalog.Entry
	HasTarget       bool
	Active          bool
	IntervalMinutes int
	UseOriginalTime bool
	RecordID        int64
	EditMode        bool
}

func defaultDraft() Draft {
	return Draft{
		Active:          true,
		IntervalMinutes: defaultIntervalMinutes,
	}
}

type Controller struct {
	client   Client
	sensorID int64
	logger   *slog.Logger

	// Confirm guards DeleteCurrent; declining is a normal cancellation.
	Confirm func(prompt string) bool
	// OnMutated runs after a successful save or delete, strictly after the
	// backend acknowledged the write. The list poller hooks its forced
	// refresh here.
	OnMutated func()

	Draft    Draft
	Saving   bool
	Deleting bool
	LastErr  error
}

func New(client Client, sensorID int64, logger *slog.Logger) *Controller {
	return &Controller{
		client:   client,
		sensorID: sensorID,
		logger:   logger,
		Draft:    defaultDraft(),
	}
}

// SensorID is the source sensor whose values the draft rule forwards.
func (c *Controller) SensorID() int64 {
	return c.sensorID
}

// SelectTarget sets the draft's target device and sensor. No request is
// issued.
func (c *Controller) SelectTarget(entry catalog.Entry) {
	c.Draft.Target = entry
	c.Draft.HasTarget = entry.DeviceID != "" && entry.SensorID != ""
}

// SelectInterval sets the draft interval from a scale position. Positions
// between marks are ignored.
func (c *Controller) SelectInterval(position int) bool {
	minutes, ok := interval.RealFor(position)
	if !ok {
		return false
	}
	c.Draft.IntervalMinutes = minutes
	return true
}

// SetIntervalMinutes sets the draft interval directly; the value must be one
// of the scale's allowed minute values.
func (c *Controller) SetIntervalMinutes(minutes int) bool {
	if _, ok := interval.PositionFor(minutes); !ok {
		return false
	}
	c.Draft.IntervalMinutes = minutes
	return true
}

func (c *Controller) ToggleActive() {
	c.Draft.Active = !c.Draft.Active
}

func (c *Controller) ToggleOriginalTimestamp() {
	c.Draft.UseOriginalTime = !c.Draft.UseOriginalTime
}

// BeginEdit populates the draft from an existing rule and enters edit mode.
// Target names are resolved against the catalog, falling back to the raw ids
// when the catalog is stale relative to the rule.
func (c *Controller) BeginEdit(rule apiclient.PushRule, cat *catalog.Catalog) {
	c.Draft.EditMode = true
	c.Draft.RecordID = rule.ID
	c.Draft.Active = rule.Active
	c.Draft.UseOriginalTime = rule.UseOriginalTime
	c.Draft.IntervalMinutes = rule.PushInterval
	c.SelectTarget(cat.ResolveTarget(rule.TargetDeviceID, rule.TargetSensorID))
}

// Save issues a create for a fresh draft or an update in edit mode. Without
// a selected target it returns ErrTargetRequired and issues nothing. A
// successful save clears the stored error and fires OnMutated. Unauthorized
// failures are returned for the access gate and are not kept as the form's
// display error.
func (c *Controller) Save(ctx context.Context) error {
	if !c.Draft.HasTarget {
		return ErrTargetRequired
	}

	rule := apiclient.PushRule{
		TargetDeviceID:  c.Draft.Target.DeviceID,
		TargetSensorID:  c.Draft.Target.SensorID,
		Active:          c.Draft.Active,
		PushInterval:    c.Draft.IntervalMinutes,
		UseOriginalTime: c.Draft.UseOriginalTime,
	}
	if c.Draft.EditMode {
		rule.ID = c.Draft.RecordID
	}

	c.Saving = true
	_, err := c.client.SavePushSettings(ctx, c.sensorID, rule)
	c.Saving = false
	if err != nil {
		if !apiclient.IsUnauthorized(err) {
			c.LastErr = err
			c.logger.Error("save push settings failed", "sensor_id", c.sensorID, "record_id", rule.ID, "error", err)
		}
		return err
	}

	c.LastErr = nil
	c.logger.Info("push settings saved", "sensor_id", c.sensorID, "record_id", rule.ID, "interval_minutes", rule.PushInterval)
	if c.OnMutated != nil {
		c.OnMutated()
	}
	return nil
}

// DeleteCurrent removes the rule being edited after confirmation. Declining
// the prompt is a normal cancellation, not an error.
func (c *Controller) DeleteCurrent(ctx context.Context) error {
	if !c.Draft.EditMode || c.Draft.RecordID == 0 {
		return nil
	}
	if c.Confirm == nil || !c.Confirm(deletePrompt) {
		return nil
	}

	c.Deleting = true
	err := c.client.DeletePushSettings(ctx, c.sensorID, c.Draft.RecordID)
	c.Deleting = false
	if err != nil {
		if !apiclient.IsUnauthorized(err) {
			c.LastErr = err
			c.logger.Error("delete push settings failed", "sensor_id", c.sensorID, "record_id", c.Draft.RecordID, "error", err)
		}
		return err
	}

	c.LastErr = nil
	c.logger.Info("push settings deleted", "sensor_id", c.sensorID, "record_id", c.Draft.RecordID)
	if c.OnMutated != nil {
		c.OnMutated()
	}
	return nil
}

// Reset clears edit mode and returns every draft field to its default.
func (c *Controller) Reset() {
	c.Draft = defaultDraft()
}
