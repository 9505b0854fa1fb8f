package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/sensorhub-core/internal/reading"
)

// dateOnlyLayout is accepted for startDate/endDate besides RFC3339.
const dateOnlyLayout = "2006-01-02"

// createReadingRequest is the POST /api/data body. Server-assigned fields
// (id, createdAt, updatedAt) are not accepted.
type createReadingRequest struct {
	DeviceID       string     `json:"deviceId"`
	Temperature    *float64   `json:"temperature"`
	Humidity       *float64   `json:"humidity"`
	WaterLevel     *float64   `json:"waterLevel"`
	LightIntensity *float64   `json:"lightIntensity"`
	MotionDetected *bool      `json:"motionDetected"`
	BatteryLevel   *float64   `json:"batteryLevel"`
	Timestamp      *time.Time `json:"timestamp"`
}

func (req createReadingRequest) reading() *reading.Reading {
	r := &reading.Reading{
		DeviceID:       req.DeviceID,
		Temperature:    req.Temperature,
		Humidity:       req.Humidity,
		WaterLevel:     req.WaterLevel,
		LightIntensity: req.LightIntensity,
		MotionDetected: req.MotionDetected,
		BatteryLevel:   req.BatteryLevel,
	}
	if req.Timestamp != nil {
		r.Timestamp = *req.Timestamp
	}
	return r
}

// handleCreateReading stores a reading for an existing device.
func (s *Server) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	var req createReadingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	stored, err := s.readings.Record(r.Context(), req.reading())
	if err != nil {
		s.writeServiceError(w, r, err, "Error creating device data")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// handleLatestReadings returns the newest reading of every device that
// has reported.
func (s *Server) handleLatestReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.readings.LatestForAll(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching latest device data for all devices")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// handleLatestReading returns the newest reading of one device.
func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	latest, err := s.readings.Latest(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching latest device data")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// handleReadingHistory returns a device's readings, newest first.
//
// Query parameters:
//   - limit: 1..1000, default 100
//   - startDate, endDate: RFC3339 or YYYY-MM-DD, each optional and inclusive
func (s *Server) handleReadingHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	history, err := s.readings.History(r.Context(), chi.URLParam(r, "deviceId"), q)
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching device data history")
		return
	}
	if len(history) == 0 {
		writeNotFound(w, msgNoData)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

var errBadLimit = errors.New("limit must be an integer between 1 and 1000")

func parseHistoryQuery(r *http.Request) (reading.Query, error) {
	params := r.URL.Query()
	q := reading.Query{Limit: reading.DefaultHistoryLimit}

	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > reading.MaxHistoryLimit {
			return q, errBadLimit
		}
		q.Limit = n
	}

	var err error
	if q.Start, err = parseDateParam(params.Get("startDate"), false); err != nil {
		return q, fmt.Errorf("invalid startDate: %w", err)
	}
	if q.End, err = parseDateParam(params.Get("endDate"), true); err != nil {
		return q, fmt.Errorf("invalid endDate: %w", err)
	}
	if q.Start != nil && q.End != nil && q.End.Before(*q.Start) {
		return q, errors.New("endDate is before startDate")
	}
	return q, nil
}

// parseDateParam parses an RFC3339 timestamp or a YYYY-MM-DD date (UTC).
// A bare end date covers the whole day, down to the last millisecond.
func parseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%q is neither RFC3339 nor YYYY-MM-DD", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}
