package catalog

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/opensensing/pushdash/internal/apiclient"
)

type fakeLoader struct {
	devices []apiclient.Device
	err     error
}

func (f fakeLoader) UserDevices(ctx context.Context) ([]apiclient.Device, error) {
	return f.devices, f.err
}

func testDevices() []apiclient.Device {
	return []apiclient.Device{
		{ID: "dev-z", Name: "zeta", Sensors: []apiclient.DeviceSensor{{ID: "s-1", Name: "Temp"}}},
		{ID: "dev-3", Name: "3Sensors", Sensors: []apiclient.DeviceSensor{{ID: "s-2", Name: "Temp"}}},
		{ID: "dev-a", Name: "alpha", Sensors: []apiclient.DeviceSensor{
			{ID: "s-3", Name: "Temp"},
			{ID: "s-4", Name: "Humidity"},
		}},
	}
}

func TestLoadFlattensDeviceSensors(t *testing.T) {
	t.Parallel()

	c, err := Load(context.Background(), fakeLoader{devices: testDevices()})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", c.Len())
	}
	titles := make(map[string]bool)
	for _, entry := range c.Entries() {
		titles[entry.Title()] = true
	}
	if !titles["alpha: Humidity"] || !titles["zeta: Temp"] {
		t.Fatalf("missing flattened titles: %v", titles)
	}
}

func TestLoadPropagatesError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("boom")
	if _, err := Load(context.Background(), fakeLoader{err: wantErr}); !errors.Is(err, wantErr) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestBucketGrouping(t *testing.T) {
	t.Parallel()

	digit := Entry{DeviceName: "3Sensors", SensorName: "Temp"}
	if digit.Bucket() != "0-9" {
		t.Fatalf("expected digit title to bucket under 0-9, got %s", digit.Bucket())
	}
	lower := Entry{DeviceName: "alpha", SensorName: "Temp"}
	if lower.Bucket() != "A" {
		t.Fatalf("expected case-insensitive bucket A, got %s", lower.Bucket())
	}
	multibyte := Entry{DeviceName: "über-station", SensorName: "Temp"}
	if got := multibyte.Bucket(); got != "Ü" || !utf8.ValidString(got) {
		t.Fatalf("expected full first rune as bucket, got %q", got)
	}
}

func TestEntriesSortedByBucket(t *testing.T) {
	t.Parallel()

	c := FromDevices(testDevices())
	entries := c.Entries()
	previous := ""
	for _, entry := range entries {
		if entry.Bucket() < previous {
			t.Fatalf("entries not bucket-sorted: %s after %s", entry.Bucket(), previous)
		}
		previous = entry.Bucket()
	}
	if entries[0].Bucket() != "0-9" {
		t.Fatalf("expected 0-9 bucket first, got %s", entries[0].Bucket())
	}
}

func TestLookupFallsBackToRawIDs(t *testing.T) {
	t.Parallel()

	c := FromDevices(testDevices())
	if got := c.DeviceName("dev-a"); got != "alpha" {
		t.Fatalf("expected device name alpha, got %s", got)
	}
	if got := c.DeviceName("dev-gone"); got != "dev-gone" {
		t.Fatalf("expected raw id fallback, got %s", got)
	}
	if got := c.SensorName("s-gone"); got != "s-gone" {
		t.Fatalf("expected raw id fallback, got %s", got)
	}

	target := c.ResolveTarget("dev-gone", "s-4")
	if target.DeviceName != "dev-gone" || target.SensorName != "Humidity" {
		t.Fatalf("unexpected resolved target: %+v", target)
	}
	if target.Title() != "dev-gone: Humidity" {
		t.Fatalf("unexpected resolved title: %s", target.Title())
	}
}

func TestNilCatalogLookupsDoNotPanic(t *testing.T) {
	t.Parallel()

	var c *Catalog
	if c.Len() != 0 {
		t.Fatal("expected nil catalog length 0")
	}
	if got := c.DeviceName("dev-1"); got != "dev-1" {
		t.Fatalf("expected raw id from nil catalog, got %s", got)
	}
}

func TestGroupedByDeviceName(t *testing.T) {
	t.Parallel()

	groups := FromDevices(testDevices()).Grouped()
	if len(groups["alpha"]) != 2 {
		t.Fatalf("expected 2 alpha entries, got %d", len(groups["alpha"]))
	}
	if len(groups["zeta"]) != 1 || len(groups["3Sensors"]) != 1 {
		t.Fatalf("unexpected groups: %v", groups)
	}
}
