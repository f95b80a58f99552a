// Package apiclient is the typed HTTP client for the sensor platform's REST
// backend. The session is cookie based; the jar can be exported and restored
// so a session survives between invocations.
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opensensing/pushdash/internal/config"
)

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func New(cfg config.Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.APIURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", cfg.APIURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	if timeout < time.Second {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion:         tls.VersionTLS12,
					InsecureSkipVerify: cfg.TLSSkipVerify,
				},
			},
			Jar:     jar,
			Timeout: timeout,
		},
	}, nil
}

// WithTimeout returns a copy of the client using the given request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if c == nil || timeout < time.Second {
		return c
	}
	clone := *c
	httpClone := *c.http
	httpClone.Timeout = timeout
	clone.http = &httpClone
	return &clone
}

// SessionCookies exports the cookies held for the backend host.
func (c *Client) SessionCookies() []*http.Cookie {
	if c.http.Jar == nil {
		return nil
	}
	return c.http.Jar.Cookies(c.baseURL)
}

// RestoreSession seeds the jar with previously exported session cookies.
func (c *Client) RestoreSession(cookies []*http.Cookie) {
	if c.http.Jar == nil || len(cookies) == 0 {
		return
	}
	c.http.Jar.SetCookies(c.baseURL, cookies)
}

// Login authenticates the session. The backend sets the session cookie and
// returns the token hash as plain text.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	payload := map[string]string{
		"username": strings.TrimSpace(username),
		"password": password,
	}
	return c.postText(ctx, "/auth", payload)
}

// Logout invalidates the current session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.postText(ctx, "/auth/logout", nil)
	return err
}

// CurrentUser returns the owner of the current session.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	if err := c.getJSON(ctx, "/user", &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// UserDevices lists the devices owned by the current user, each with its
// sensors.
func (c *Client) UserDevices(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := c.getJSON(ctx, "/userDevices", &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// PushSettings fetches one page of push rules for a sensor. Pages are
// 1-based; zero or negative means page 1.
func (c *Client) PushSettings(ctx context.Context, sensorID int64, page int) (PushSettingsPage, error) {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("/sensors/%d/pushSettings?page=%d", sensorID, page)
	var result PushSettingsPage
	if err := c.getJSON(ctx, path, &result); err != nil {
		return PushSettingsPage{}, err
	}
	return result, nil
}

// SavePushSettings creates or updates a push rule for a sensor. A rule with
// ID 0 is inserted; any other ID updates the existing record.
func (c *Client) SavePushSettings(ctx context.Context, sensorID int64, rule PushRule) (string, error) {
	path := fmt.Sprintf("/sensors/%d/pushSettings", sensorID)
	return c.postText(ctx, path, rule)
}

// DeletePushSettings removes a persisted push rule.
func (c *Client) DeletePushSettings(ctx context.Context, sensorID, recordID int64) error {
	path := fmt.Sprintf("/sensors/%d/pushSettings/%d", sensorID, recordID)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	_, err = c.doText(req)
	return err
}

// CollectionStatus reports the ingestion workers' live state.
func (c *Client) CollectionStatus(ctx context.Context) (CollectionStatus, error) {
	var status CollectionStatus
	if err := c.getJSON(ctx, "/dataCollection/status", &status); err != nil {
		return CollectionStatus{}, err
	}
	return status, nil
}

// CollectionStatistics reports cumulative ingestion totals.
func (c *Client) CollectionStatistics(ctx context.Context) (CollectionStatistics, error) {
	var stats CollectionStatistics
	if err := c.getJSON(ctx, "/dataCollection/statistics", &stats); err != nil {
		return CollectionStatistics{}, err
	}
	return stats, nil
}

// SearchSensors fetches one page of sensors matching a free-text query.
func (c *Client) SearchSensors(ctx context.Context, query string, page int) (SensorsPage, error) {
	if page < 1 {
		page = 1
	}
	path := "/search/sensors/" + url.PathEscape(strings.TrimSpace(query)) + "?page=" + strconv.Itoa(page)
	var result SensorsPage
	if err := c.getJSON(ctx, path, &result); err != nil {
		return SensorsPage{}, err
	}
	return result, nil
}

// Sensor fetches one sensor by id.
func (c *Client) Sensor(ctx context.Context, sensorID int64) (SensorRow, error) {
	var sensor SensorRow
	if err := c.getJSON(ctx, fmt.Sprintf("/sensors/%d", sensorID), &sensor); err != nil {
		return SensorRow{}, err
	}
	return sensor, nil
}

// SensorValues fetches one page of a sensor's recorded readings.
func (c *Client) SensorValues(ctx context.Context, sensorID int64, page int) (SensorValuesPage, error) {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("/sensors/%d/values?page=%d", sensorID, page)
	var result SensorValuesPage
	if err := c.getJSON(ctx, path, &result); err != nil {
		return SensorValuesPage{}, err
	}
	return result, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return err
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postText(ctx context.Context, path string, body any) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", err
	}
	return c.doText(req)
}

func (c *Client) doText(req *http.Request) (string, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return "", err
	}
	text, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}

// checkStatus drains the body into the error envelope on non-2xx responses.
func checkStatus(res *http.Response) error {
	if res.StatusCode < http.StatusBadRequest {
		return nil
	}
	text, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return &Error{Status: res.StatusCode, Message: strings.TrimSpace(string(text))}
}
