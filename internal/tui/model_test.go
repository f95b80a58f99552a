package tui

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/opensensing/pushdash/internal/apiclient"
	"github.com/opensensing/pushdash/internal/authgate"
	"github.com/opensensing/pushdash/internal/catalog"
	"github.com/opensensing/pushdash/internal/config"
	"github.com/opensensing/pushdash/internal/pushlist"
)

func newTestModel(t *testing.T, sensorID int64) model {
	t.Helper()
	cfg := config.Config{APIURL: "http://localhost:8080", ListPollSec: 60, HTTPTimeoutSec: 5}
	client, err := apiclient.New(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := newModel(cfg, client, nil, logger, sensorID)
	t.Cleanup(func() {
		if m.poller != nil {
			m.poller.Close()
		}
	})
	return m
}

func TestStartsOnSensorSearchWithoutSensor(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 0)
	if m.activeView != viewSensors {
		t.Fatalf("expected sensors view, got %s", m.activeView)
	}
	if m.poller != nil {
		t.Fatal("no poller must exist before a sensor is attached")
	}
}

func TestStartsOnPushViewWithSensor(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 42)
	if m.activeView != viewPush {
		t.Fatalf("expected push view, got %s", m.activeView)
	}
	if m.poller == nil || m.form == nil {
		t.Fatal("attaching a sensor must build the poller and form")
	}
	if m.form.SensorID() != 42 {
		t.Fatalf("form bound to wrong sensor: %d", m.form.SensorID())
	}
}

func TestAttachSensorReplacesPoller(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 1)
	first := m.poller
	m.attachSensor(2)
	defer m.poller.Close()
	if m.poller == first {
		t.Fatal("attaching a new sensor must build a fresh poller")
	}
}

func TestPushPageSnapshotFillsTable(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 7)

	lastPush := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	snapshot := pushlist.Snapshot{
		Rows: []apiclient.PushRule{
			{ID: 1, TargetDeviceID: "d1", TargetSensorID: "s1", Active: true, PushInterval: 60, LastPushTime: &lastPush, PushedCount: 1234},
		},
		Pagination: apiclient.Pagination{CurrentPage: 1, TotalEntries: 1, TotalPages: 1},
		Loaded:     true,
	}

	updated, _ := m.handlePushPage(pushPageMsg{snapshot: snapshot})
	got := updated.(model)
	if len(got.rulesTable.Rows()) != 1 {
		t.Fatalf("expected 1 table row, got %d", len(got.rulesTable.Rows()))
	}
	row := got.rulesTable.Rows()[0]
	if row[1] != "active" {
		t.Fatalf("expected active status, got %q", row[1])
	}
	if row[2] != "1 hour" {
		t.Fatalf("expected formatted interval, got %q", row[2])
	}
	if row[4] != "1,234" {
		t.Fatalf("expected grouped count, got %q", row[4])
	}
}

func TestUnauthorizedSnapshotOpensLogin(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 7)

	snapshot := pushlist.Snapshot{Err: &apiclient.Error{Status: 401, Message: "unauthorized"}}
	updated, _ := m.handlePushPage(pushPageMsg{snapshot: snapshot})
	got := updated.(model)

	if got.gate.State() != authgate.StateUnauthorized {
		t.Fatalf("expected unauthorized gate, got %s", got.gate.State())
	}

	// The poller is paused instead of queueing retries, so repeated 401
	// snapshots never accumulate pending work.
	updated, _ = got.handlePushPage(pushPageMsg{snapshot: snapshot})
	got = updated.(model)
	if len(got.pending) != 0 {
		t.Fatalf("unauthorized snapshots must not queue retries, got %d pending", len(got.pending))
	}
}

func TestLoginSuccessResumesPolling(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 7)

	snapshot := pushlist.Snapshot{Err: &apiclient.Error{Status: 401, Message: "unauthorized"}}
	updated, _ := m.handlePushPage(pushPageMsg{snapshot: snapshot})
	got := updated.(model)

	resumed, cmd := got.handleLoginDone(loginDoneMsg{username: "ada"})
	got = resumed.(model)
	if cmd == nil {
		t.Fatal("login success must issue the poller resume command")
	}
	if len(got.pending) != 0 {
		t.Fatalf("pending queue must be drained after login, got %d", len(got.pending))
	}
}

func TestRuleTableCapsRenderedRows(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 7)

	rules := make([]apiclient.PushRule, 250)
	for index := range rules {
		rules[index] = apiclient.PushRule{ID: int64(index + 1), TargetDeviceID: "d", TargetSensorID: "s", PushInterval: 10}
	}
	snapshot := pushlist.Snapshot{
		Rows:       rules,
		Pagination: apiclient.Pagination{CurrentPage: 1, TotalEntries: 5000, TotalPages: 25},
		Loaded:     true,
	}

	updated, _ := m.handlePushPage(pushPageMsg{snapshot: snapshot})
	got := updated.(model)
	if len(got.rulesTable.Rows()) != 200 {
		t.Fatalf("expected the table capped at 200 rows, got %d", len(got.rulesTable.Rows()))
	}
}

func TestSensorsViewReportsEmptyResult(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 0)
	m.searchQuery = "greenhouse"
	m.sensors = apiclient.SensorsPage{}

	view := m.sensorsView()
	if !strings.Contains(view, "no sensors match") {
		t.Fatalf("expected empty-result notice, got %q", view)
	}
}

func TestGenericSnapshotErrorStaysOnView(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 7)

	snapshot := pushlist.Snapshot{Err: &apiclient.Error{Status: 502, Message: "bad gateway"}}
	updated, _ := m.handlePushPage(pushPageMsg{snapshot: snapshot})
	got := updated.(model)

	if got.gate.State() == authgate.StateUnauthorized {
		t.Fatal("a non-401 error must not trip the gate")
	}
	if got.errorText == "" {
		t.Fatal("expected the error to be surfaced")
	}
}

func TestActionErrQueuesRetryOn401(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 7)

	updated, _ := m.handleActionErr(&apiclient.Error{Status: 401}, m.loadCatalogCmd())
	got := updated.(model)
	if got.gate.State() != authgate.StateUnauthorized {
		t.Fatal("expected gate to flip unauthorized")
	}
	if len(got.pending) != 1 {
		t.Fatalf("expected 1 pending retry, got %d", len(got.pending))
	}
}

func TestCatalogLoadedSelectsFirstTarget(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 7)

	cat := catalog.FromDevices([]apiclient.Device{
		{ID: "d1", Name: "barn", Sensors: []apiclient.DeviceSensor{{ID: "s1", Name: "Humidity"}}},
	})
	updated, _ := m.handleCatalogLoaded(catalogLoadedMsg{cat: cat})
	got := updated.(model)

	if !got.form.Draft.HasTarget {
		t.Fatal("first catalog entry must become the default target")
	}
	if got.form.Draft.Target.Title() != "barn: Humidity" {
		t.Fatalf("unexpected default target: %s", got.form.Draft.Target.Title())
	}
}

func TestTargetIndexForUnknownTargetIsZero(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, 7)
	m.cat = catalog.FromDevices([]apiclient.Device{
		{ID: "d1", Name: "barn", Sensors: []apiclient.DeviceSensor{{ID: "s1", Name: "Humidity"}}},
	})
	if index := m.targetIndexFor(catalog.Entry{DeviceID: "gone", SensorID: "gone"}); index != 0 {
		t.Fatalf("unknown target must map to index 0, got %d", index)
	}
}

func TestFormatLastPushNever(t *testing.T) {
	t.Parallel()
	if got := formatLastPush(nil); got != "never" {
		t.Fatalf("nil last push must read never, got %q", got)
	}
	var zero time.Time
	if got := formatLastPush(&zero); got != "never" {
		t.Fatalf("zero last push must read never, got %q", got)
	}
}

func TestRuleTargetWithoutCatalogShowsRawIDs(t *testing.T) {
	t.Parallel()
	if got := ruleTarget(nil, "dev-9", "sen-3"); got != "dev-9: sen-3" {
		t.Fatalf("expected raw ids, got %q", got)
	}
}
