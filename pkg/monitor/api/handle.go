package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	cgerr "github.com/cyberguard/cyberguard/pkg/errors"
	"github.com/cyberguard/cyberguard/pkg/monitor"
)

// MonitorHandler exposes the dashboard's monitoring surface over HTTP
type MonitorHandler struct {
	service *monitor.Service
}

// NewMonitorHandler creates a new monitor API handler
func NewMonitorHandler(service *monitor.Service) *MonitorHandler {
	return &MonitorHandler{service: service}
}

// Handler mounts the monitoring routes on a fresh router.
func Handler(h *MonitorHandler) http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes attaches the monitoring routes. Session enforcement is the
// caller's concern; these routes carry no auth of their own.
func (h *MonitorHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/stats", h.GetDashboardStats)

	r.Get("/threats", h.ListThreats)
	r.Post("/threats", h.CreateThreat)
	r.Patch("/threats/{id}", h.UpdateThreat)

	r.Get("/files", h.ListFiles)
	r.Post("/files", h.CreateFile)
	r.Patch("/files/{id}", h.UpdateFile)

	r.Get("/events", h.ListEvents)
	r.Post("/events", h.CreateEvent)

	r.Get("/security-config", h.ListSecurityConfig)
	r.Patch("/security-config/{service}", h.UpdateSecurityConfig)

	r.Get("/devices", h.ListDevices)
	r.Post("/devices", h.CreateDevice)
	r.Patch("/devices/{id}", h.UpdateDevice)
}

// GetDashboardStats handles GET /dashboard/stats
func (h *MonitorHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetDashboardStats(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, StatsResponse(stats))
}

// ListThreats handles GET /threats
func (h *MonitorHandler) ListThreats(w http.ResponseWriter, r *http.Request) {
	threats, err := h.service.ListThreats(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	out := make([]ThreatResponse, 0, len(threats))
	for _, t := range threats {
		out = append(out, ThreatResponse(t))
	}
	render.JSON(w, r, out)
}

// CreateThreat handles POST /threats
func (h *MonitorHandler) CreateThreat(w http.ResponseWriter, r *http.Request) {
	var req CreateThreatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	var params monitor.CreateThreatParams
	if err := copier.Copy(&params, &req); err != nil {
		renderError(w, r, cgerr.InternalWrap(err, "failed to map request"))
		return
	}

	threat, err := h.service.CreateThreat(r.Context(), params)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, ThreatResponse(threat))
}

// UpdateThreat handles PATCH /threats/{id}
func (h *MonitorHandler) UpdateThreat(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpdateThreatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	threat, err := h.service.UpdateThreatStatus(r.Context(), id, req.Status, req.ResolvedAt)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, ThreatResponse(threat))
}

// ListFiles handles GET /files
func (h *MonitorHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListScannedFiles(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	out := make([]FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, FileResponse(f))
	}
	render.JSON(w, r, out)
}

// CreateFile handles POST /files
func (h *MonitorHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	file, err := h.service.CreateScannedFile(r.Context(), monitor.CreateScannedFileParams{
		Filename:   req.Filename,
		FileSize:   req.FileSize,
		ScanStatus: req.ScanStatus,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, FileResponse(file))
}

// UpdateFile handles PATCH /files/{id}
func (h *MonitorHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpdateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	file, err := h.service.UpdateFileStatus(r.Context(), id, req.Status, req.ThreatFound)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, FileResponse(file))
}

// ListEvents handles GET /events, honoring an optional ?limit= query.
func (h *MonitorHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "limit must be an integer"))
			return
		}
		limit = parsed
	}

	events, err := h.service.ListSystemEvents(r.Context(), limit)
	if err != nil {
		renderError(w, r, err)
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse(e))
	}
	render.JSON(w, r, out)
}

// CreateEvent handles POST /events
func (h *MonitorHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	event, err := h.service.CreateSystemEvent(r.Context(), monitor.CreateSystemEventParams{
		Type:     req.Type,
		Message:  req.Message,
		Severity: req.Severity,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, EventResponse(event))
}

// ListSecurityConfig handles GET /security-config
func (h *MonitorHandler) ListSecurityConfig(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListSecurityConfig(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	out := make([]ConfigResponse, 0, len(configs))
	for _, c := range configs {
		out = append(out, ConfigResponse(c))
	}
	render.JSON(w, r, out)
}

// UpdateSecurityConfig handles PATCH /security-config/{service}
func (h *MonitorHandler) UpdateSecurityConfig(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")

	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	config, err := h.service.UpdateSecurityConfig(r.Context(), service, req.Status)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, ConfigResponse(config))
}

// ListDevices handles GET /devices
func (h *MonitorHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.service.ListConnectedDevices(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	out := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceResponse(d))
	}
	render.JSON(w, r, out)
}

// CreateDevice handles POST /devices
func (h *MonitorHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var req CreateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	var params monitor.CreateConnectedDeviceParams
	if err := copier.Copy(&params, &req); err != nil {
		renderError(w, r, cgerr.InternalWrap(err, "failed to map request"))
		return
	}

	device, err := h.service.CreateConnectedDevice(r.Context(), params)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, DeviceResponse(device))
}

// UpdateDevice handles PATCH /devices/{id}
func (h *MonitorHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpdateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	device, err := h.service.UpdateDeviceStatus(r.Context(), id, req.Status)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, DeviceResponse(device))
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		renderError(w, r, cgerr.New(cgerr.ErrCodeInvalidInput, "id must be an integer"))
		return 0, false
	}
	return id, true
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := cgerr.GetCode(err)
	status := cgerr.MapErrorCodeToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "code", code, "err", err)
	}

	message := "internal error"
	var appErr *cgerr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: string(code), Error: message})
}
