package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nerrad567/sensorhub-core/internal/device"
	"github.com/nerrad567/sensorhub-core/internal/reading"
)

// defaultRequestTimeout applies when NewClient is given zero.
const defaultRequestTimeout = 10 * time.Second

// APIError is a non-2xx reply from the sensorhub API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// errorBody mirrors the API's JSON error response.
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"error"`
}

// NewReading is the body of POST /api/data. Nil values are not sent.
type NewReading struct {
	DeviceID       string     `json:"deviceId"`
	Temperature    *float64   `json:"temperature,omitempty"`
	Humidity       *float64   `json:"humidity,omitempty"`
	WaterLevel     *float64   `json:"waterLevel,omitempty"`
	LightIntensity *float64   `json:"lightIntensity,omitempty"`
	MotionDetected *bool      `json:"motionDetected,omitempty"`
	BatteryLevel   *float64   `json:"batteryLevel,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
}

// Client is a typed client for the sensorhub REST API.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the API served at baseURL. Both the
// server root ("http://localhost:5000") and the API prefix
// ("http://localhost:5000/api") are accepted.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/api")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Devices lists all devices, sorted by name.
func (c *Client) Devices(ctx context.Context) ([]device.Device, error) {
	var devices []device.Device
	if err := c.do(ctx, http.MethodGet, "/api/devices", nil, nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// CreateDevice registers a device.
func (c *Client) CreateDevice(ctx context.Context, in device.NewDevice) (*device.Device, error) {
	var d device.Device
	if err := c.do(ctx, http.MethodPost, "/api/devices", nil, in, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDevice removes a device.
func (c *Client) DeleteDevice(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodDelete, "/api/devices/"+deviceID, nil, nil, nil)
}

// LatestReadings returns the newest reading of every device that has reported.
func (c *Client) LatestReadings(ctx context.Context) ([]reading.Reading, error) {
	var readings []reading.Reading
	if err := c.do(ctx, http.MethodGet, "/api/data/latest", nil, nil, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// LatestReading returns a device's newest reading.
func (c *Client) LatestReading(ctx context.Context, deviceID string) (*reading.Reading, error) {
	var r reading.Reading
	if err := c.do(ctx, http.MethodGet, "/api/data/latest/"+deviceID, nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// History returns up to limit readings for deviceID, newest first.
// A device without readings yields a 404 *APIError.
func (c *Client) History(ctx context.Context, deviceID string, limit int) ([]reading.Reading, error) {
	query := map[string]string{}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	var readings []reading.Reading
	if err := c.do(ctx, http.MethodGet, "/api/data/history/"+deviceID, query, nil, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// CreateReading stores a reading.
func (c *Client) CreateReading(ctx context.Context, in NewReading) (*reading.Reading, error) {
	var r reading.Reading
	if err := c.do(ctx, http.MethodPost, "/api/data", nil, in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, result any) error {
	var apiErr errorBody
	req := c.http.R().
		SetContext(ctx).
		SetError(&apiErr)
	if query != nil {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		if msg == "" {
			msg = resp.Status()
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}
