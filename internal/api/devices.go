package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/sensorhub-core/internal/device"
)

// handleListDevices returns every device ordered by name.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListDevices(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns a single device by deviceId.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.devices.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice registers a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var in device.NewDevice
	if !decodeJSON(w, r, &in) {
		return
	}

	dev, err := s.devices.CreateDevice(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err, "Error creating device")
		return
	}
	writeJSON(w, http.StatusCreated, dev)
}

// updateDeviceRequest is the PUT body. deviceId may be echoed back but
// not changed.
type updateDeviceRequest struct {
	device.Update
	DeviceID *string `json:"deviceId,omitempty"`
}

// handleUpdateDevice applies a partial update and returns the result.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DeviceID != nil && strings.TrimSpace(*req.DeviceID) != id {
		writeBadRequest(w, "deviceId cannot be changed")
		return
	}

	dev, err := s.devices.UpdateDevice(r.Context(), id, req.Update)
	if err != nil {
		s.writeServiceError(w, r, err, "Error updating device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device. Its readings are kept.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.devices.DeleteDevice(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err, "Error deleting device")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Device deleted"})
}
