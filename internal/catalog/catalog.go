// Package catalog flattens the user's devices and their sensors into the
// selectable (device, sensor) pairs used as push targets. The catalog is
// loaded once and read-only afterwards; name lookups fall back to the raw id
// when an existing rule references a device or sensor the catalog no longer
// contains.
package catalog

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/opensensing/pushdash/internal/apiclient"
)

// Entry is one selectable push target.
type Entry struct {
	DeviceID   string
	DeviceName string
	SensorID   string
	SensorName string
}

// Title is the display name of the entry.
func (e Entry) Title() string {
	return e.DeviceName + ": " + e.SensorName
}

// Bucket is the alphabetical group the entry sorts under: the upper-cased
// first rune of its title, with digits collapsed into "0-9".
func (e Entry) Bucket() string {
	title := e.Title()
	if title == "" || title == ": " {
		return ""
	}
	first, _ := utf8.DecodeRuneInString(title)
	if first >= '0' && first <= '9' {
		return "0-9"
	}
	return strings.ToUpper(string(first))
}

// Loader fetches the device list.
type Loader interface {
	UserDevices(ctx context.Context) ([]apiclient.Device, error)
}

// Catalog is the immutable set of push target entries.
type Catalog struct {
	entries []Entry
}

// Load fetches the device list and flattens each device's sensors into
// entries, sorted by bucket.
func Load(ctx context.Context, loader Loader) (*Catalog, error) {
	devices, err := loader.UserDevices(ctx)
	if err != nil {
		return nil, err
	}
	return FromDevices(devices), nil
}

// FromDevices builds a catalog from an already fetched device list.
func FromDevices(devices []apiclient.Device) *Catalog {
	entries := make([]Entry, 0, len(devices))
	for _, device := range devices {
		for _, sensor := range device.Sensors {
			entries = append(entries, Entry{
				DeviceID:   device.ID,
				DeviceName: device.Name,
				SensorID:   sensor.ID,
				SensorName: sensor.Name,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Bucket() < entries[j].Bucket()
	})
	return &Catalog{entries: entries}
}

// Entries returns the catalog in bucket order. The slice is a copy.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len reports the number of entries. An empty loaded catalog means the user
// owns no devices; a nil catalog means not yet loaded.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// DeviceName resolves a device id to its display name, falling back to the
// raw id on a miss.
func (c *Catalog) DeviceName(deviceID string) string {
	if c != nil {
		for _, entry := range c.entries {
			if entry.DeviceID == deviceID {
				return entry.DeviceName
			}
		}
	}
	return deviceID
}

// SensorName resolves a sensor id to its display name, falling back to the
// raw id on a miss.
func (c *Catalog) SensorName(sensorID string) string {
	if c != nil {
		for _, entry := range c.entries {
			if entry.SensorID == sensorID {
				return entry.SensorName
			}
		}
	}
	return sensorID
}

// ResolveTarget builds the display entry for an existing rule's target,
// using raw ids wherever the catalog has no match.
func (c *Catalog) ResolveTarget(deviceID, sensorID string) Entry {
	return Entry{
		DeviceID:   deviceID,
		DeviceName: c.DeviceName(deviceID),
		SensorID:   sensorID,
		SensorName: c.SensorName(sensorID),
	}
}

// Grouped returns the entries grouped by device name, preserving bucket
// order within each group.
func (c *Catalog) Grouped() map[string][]Entry {
	groups := make(map[string][]Entry)
	if c == nil {
		return groups
	}
	for _, entry := range c.entries {
		groups[entry.DeviceName] = append(groups[entry.DeviceName], entry)
	}
	return groups
}
