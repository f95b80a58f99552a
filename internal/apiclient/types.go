package apiclient

import "time"

// Pagination is the page window descriptor returned by every paged endpoint.
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalEntries int `json:"total_entries"`
	TotalPages   int `json:"total_pages"`
}

// PushRule is one scheduled forwarding job for a sensor. ID 0 (or absent)
// means the rule has not been persisted yet; the save endpoint treats it as
// an insert.
type PushRule struct {
	ID              int64      `json:"id"`
	TargetDeviceID  string     `json:"target_device_id"`
	TargetSensorID  string     `json:"target_sensor_id"`
	Active          bool       `json:"active"`
	PushInterval    int        `json:"push_interval"`
	UseOriginalTime bool       `json:"use_original_time"`
	LastPushTime    *time.Time `json:"last_push_time,omitempty"`
	PushedCount     int64      `json:"pushed_count,omitempty"`
}

// PushSettingsPage is one page of push rules for a sensor.
type PushSettingsPage struct {
	Pagination Pagination `json:"pagination"`
	Rows       []PushRule `json:"rows"`
}

// DeviceSensor is one sensor belonging to a user device.
type DeviceSensor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Device is one device owned by the authenticated user.
type Device struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Sensors []DeviceSensor `json:"sensors"`
}

// User identifies the authenticated session owner.
type User struct {
	Username  string `json:"username"`
	TokenHash string `json:"tokenHash"`
}

// CollectionStatus reports the live state of the platform's ingestion workers.
type CollectionStatus struct {
	ChannelsRunning          bool      `json:"ChannelsRunning"`
	SensorsRunning           bool      `json:"SensorsRunning"`
	SensorsProgress          float64   `json:"SensorsProgress"`
	NewExtractedChannels     int64     `json:"NewExtractedChannels"`
	NewExtractedSensors      int64     `json:"NewExtractedSensors"`
	NewExtractedSensorValues int64     `json:"NewExtractedSensorValues"`
	LastExtractionTime       time.Time `json:"LastExtractionTime"`
}

// CollectionStatistics reports cumulative ingestion totals.
type CollectionStatistics struct {
	TotalChannels     int64 `json:"totalChannels"`
	TotalSensors      int64 `json:"totalSensors"`
	TotalSensorValues int64 `json:"totalSensorValues"`
}

// SensorRow is one sensor as returned by search and lookup endpoints.
type SensorRow struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ChannelID   int64  `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

// SensorsPage is one page of sensor search results.
type SensorsPage struct {
	Pagination Pagination  `json:"pagination"`
	Rows       []SensorRow `json:"rows"`
}

// SensorValueRow is one recorded reading of a sensor.
type SensorValueRow struct {
	EntryID   int64     `json:"entry_id"`
	SensorID  int64     `json:"sensor_id"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// SensorValuesPage is one page of sensor readings.
type SensorValuesPage struct {
	Pagination Pagination       `json:"pagination"`
	Rows       []SensorValueRow `json:"rows"`
}
