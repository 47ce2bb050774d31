package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/telldus-integration/internal/pkg/model"
	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

type Command string

const (
	TurnOnCommand  Command = "turn_on"
	TurnOffCommand Command = "turn_off"
	DimCommand     Command = "dim"
	UpCommand      Command = "up"
	DownCommand    Command = "down"
	StopCommand    Command = "stop"
)

type deviceHub interface {
	Device(id string) *telldus.Device
	Devices() []*telldus.Device
	IsAvailable(id string) bool
}

// historyStore serves the readings recorded by the database sink.
type historyStore interface {
	History(ctx context.Context, deviceID string, from, to *time.Time) (model.Readings, error)
	Latest(ctx context.Context, deviceID string) (model.Readings, error)
	Inventory(ctx context.Context) ([]model.InventoryEntry, error)
}

// stateNotifier is told about every successful command so that all sinks
// republish the optimistic state.
type stateNotifier interface {
	StatePossiblyChanged(ctx context.Context, id string)
}

type server struct {
	hub        deviceHub
	history    historyStore
	notifier   stateNotifier
	events     http.Handler
	apiKeyHash string
	logger     *zap.Logger
}

// Option configures the optional parts of the API.
type Option func(*server)

// WithHistory enables the history, latest and inventory endpoints.
func WithHistory(h historyStore) Option {
	return func(s *server) { s.history = h }
}

// WithEvents mounts the websocket event stream on /ws.
func WithEvents(events http.Handler) Option {
	return func(s *server) { s.events = events }
}

// WithAPIKeyHash requires a key matching the bcrypt hash on /api and /ws.
func WithAPIKeyHash(hash string) Option {
	return func(s *server) { s.apiKeyHash = hash }
}

// New builds the HTTP API handler.
func New(hub deviceHub, notifier stateNotifier, opts ...Option) http.Handler {
	s := &server{
		hub:      hub,
		notifier: notifier,
		logger:   zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s.routes()
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)

	r.Get("/healthz", s.health)
	r.Group(func(r chi.Router) {
		r.Use(APIKeyMiddleware(s.apiKeyHash))
		r.Route("/api/devices", func(r chi.Router) {
			r.Get("/", s.listDevices)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getDevice)
				r.Get("/history", s.deviceHistory)
				r.Get("/latest", s.deviceLatest)
				r.Post("/{command}", s.deviceCommand)
			})
		})
		r.Get("/api/inventory", s.inventory)
		if s.events != nil {
			r.Handle("/ws", s.events)
		}
	})
	return r
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) listDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, lo.Map(s.hub.Devices(), func(d *telldus.Device, _ int) model.DeviceView {
		return model.NewDeviceView(d)
	}))
}

func (s *server) getDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.hub.IsAvailable(id) {
		writeNotFound(w, "device "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, model.NewDeviceView(s.hub.Device(id)))
}

func (s *server) deviceCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	command := Command(chi.URLParam(r, "command"))
	if !s.hub.IsAvailable(id) {
		writeNotFound(w, "device "+id+" not found")
		return
	}
	d := s.hub.Device(id)
	ctx := r.Context()

	var err error
	switch command {
	case TurnOnCommand:
		err = d.TurnOn(ctx)
	case TurnOffCommand:
		err = d.TurnOff(ctx)
	case DimCommand:
		level, convErr := strconv.Atoi(r.URL.Query().Get("level"))
		if convErr != nil {
			writeBadRequest(w, "level must be an integer between 0 and 255")
			return
		}
		err = d.Dim(ctx, level)
	case UpCommand:
		err = d.Up(ctx)
	case DownCommand:
		err = d.Down(ctx)
	case StopCommand:
		err = d.Stop(ctx)
	default:
		writeBadRequest(w, "unknown command "+string(command))
		return
	}
	if err != nil {
		s.logger.Warn("command failed", zap.String("device_id", id), zap.String("command", string(command)), zap.Error(err))
		handleCommandError(w, err)
		return
	}

	s.logger.Info("executed command", zap.String("device_id", id), zap.String("command", string(command)))
	s.notifier.StatePossiblyChanged(ctx, id)
	writeJSON(w, http.StatusOK, model.NewDeviceView(d))
}

func handleCommandError(w http.ResponseWriter, err error) {
	var remote *telldus.RemoteError
	switch {
	case errors.Is(err, telldus.ErrInvalidLevel), errors.Is(err, telldus.ErrNotIssuable):
		writeBadRequest(w, err.Error())
	case errors.As(err, &remote), errors.Is(err, telldus.ErrCommandRejected), errors.Is(err, telldus.ErrTransport):
		writeError(w, http.StatusBadGateway, errCodeUpstream, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}

func (s *server) historyEnabled(w http.ResponseWriter) bool {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, errCodeUnavailable, "history is not enabled")
		return false
	}
	return true
}

func (s *server) deviceHistory(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w) {
		return
	}
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		writeBadRequest(w, "from: "+err.Error())
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		writeBadRequest(w, "to: "+err.Error())
		return
	}

	readings, err := s.history.History(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		s.logger.Error("failed to read history", zap.Error(err))
		writeInternalError(w, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func (s *server) deviceLatest(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w) {
		return
	}
	readings, err := s.history.Latest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("failed to read latest readings", zap.Error(err))
		writeInternalError(w, "failed to read latest readings")
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func (s *server) inventory(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w) {
		return
	}
	entries, err := s.history.Inventory(r.Context())
	if err != nil {
		s.logger.Error("failed to read inventory", zap.Error(err))
		writeInternalError(w, "failed to read inventory")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func parseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
