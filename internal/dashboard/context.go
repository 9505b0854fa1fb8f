package dashboard

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/sensorhub-core/internal/device"
	"github.com/nerrad567/sensorhub-core/internal/reading"
)

// Defaults for Options.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultHistoryLimit = 50
)

// Messages recorded in State.Error.
const (
	msgFetchDevices = "Failed to fetch devices"
	msgAddDevice    = "Failed to add device"
	msgAddReading   = "Failed to add device data"
)

// ErrAlreadyStarted is returned by Start on a running Context.
var ErrAlreadyStarted = errors.New("dashboard: already started")

// API is the part of the REST surface the context drives. *Client
// satisfies it.
type API interface {
	Devices(ctx context.Context) ([]device.Device, error)
	CreateDevice(ctx context.Context, in device.NewDevice) (*device.Device, error)
	LatestReadings(ctx context.Context) ([]reading.Reading, error)
	History(ctx context.Context, deviceID string, limit int) ([]reading.Reading, error)
	CreateReading(ctx context.Context, in NewReading) (*reading.Reading, error)
}

// Logger defines the logging interface used by the Context.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Context.
type Options struct {
	PollInterval time.Duration
	HistoryLimit int
	Logger       Logger
}

// State is a snapshot of the dashboard.
type State struct {
	Devices  []device.Device
	Latest   []reading.Reading
	History  []reading.Reading // oldest first
	Selected string
	Loading  bool

	// Error is the message of the last failed device fetch or mutation,
	// cleared by the next successful mutation. Poll failures never land here.
	Error string

	LastPoll time.Time

	// seq orders snapshots so listeners never see an older one after a newer.
	seq uint64
}

// Context keeps a polled view of the API: all devices, the latest reading
// per device and the history of one selected device.
//
// Every fetch carries a generation token. The latest poll and the history
// fetch each keep their own counter; a response is applied only while its
// token is current (and, for history, while its device is still selected).
// Starting a fetch cancels the one it supersedes.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Listeners are called outside the state lock, in registration order,
//     one snapshot at a time. A snapshot older than one already delivered
//     is dropped.
//   - A listener must not call Select, AddDevice, AddReading or Refresh
//     synchronously; hand the work to another goroutine instead.
type Context struct {
	api          API
	pollInterval time.Duration
	historyLimit int
	logger       Logger

	mu           sync.Mutex
	state        State
	loadingCount int

	latestGen     uint64
	latestCancel  context.CancelFunc
	historyGen    uint64
	historyCancel context.CancelFunc
	devicesGen    uint64

	listeners []listener
	nextID    int

	// seq stamps published snapshots; delivered is the newest one handed
	// to listeners. notifyMu serialises delivery.
	seq       uint64
	notifyMu  sync.Mutex
	delivered uint64

	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

type listener struct {
	id int
	fn func(State)
}

// NewContext creates a dashboard context over api.
func NewContext(api API, opts Options) *Context {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Context{
		api:          api,
		pollInterval: opts.PollInterval,
		historyLimit: opts.HistoryLimit,
		logger:       opts.Logger,
	}
}

// Start loads devices (selecting the first when nothing is selected) and
// the latest readings, then polls the latest readings until ctx is
// cancelled or Stop is called. The device fetch error, if any, is
// returned after polling has started.
func (c *Context) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.runCancel != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.runCancel = cancel
	c.mu.Unlock()

	err := c.fetchDevices(runCtx)
	c.fetchLatest(runCtx)

	c.wg.Add(1)
	go c.pollLoop(runCtx)

	return err
}

// Stop ends polling and cancels every request in flight.
func (c *Context) Stop() {
	c.mu.Lock()
	if c.runCancel != nil {
		c.runCancel()
		c.runCancel = nil
	}
	if c.latestCancel != nil {
		c.latestCancel()
	}
	if c.historyCancel != nil {
		c.historyCancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Context) pollLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fetchLatest(ctx)
		}
	}
}

// Select makes deviceID the selected device and fetches its history.
// An empty id clears the selection and the history.
func (c *Context) Select(ctx context.Context, deviceID string) {
	c.mu.Lock()
	changed := c.state.Selected != deviceID
	c.state.Selected = deviceID
	if deviceID == "" {
		c.historyGen++
		if c.historyCancel != nil {
			c.historyCancel()
			c.historyCancel = nil
		}
		c.state.History = nil
	}
	snap := c.publishLocked()
	c.mu.Unlock()

	if changed {
		c.notify(snap)
	}
	if deviceID != "" {
		c.fetchHistory(ctx, deviceID)
	}
}

// AddDevice creates a device, then reloads the device list. The first
// device added to an empty selection becomes selected.
func (c *Context) AddDevice(ctx context.Context, in device.NewDevice) (*device.Device, error) {
	d, err := c.api.CreateDevice(ctx, in)
	if err != nil {
		c.setError(mutationMessage(err, msgAddDevice))
		return nil, err
	}
	c.setError("")

	if err := c.fetchDevices(ctx); err != nil {
		return d, nil
	}

	c.mu.Lock()
	selectNew := c.state.Selected == ""
	c.mu.Unlock()
	if selectNew {
		c.Select(ctx, d.DeviceID)
	}
	return d, nil
}

// AddReading stores a reading stamped now (unless it carries a timestamp),
// then refreshes the latest readings and, when the reading belongs to the
// selected device, its history.
func (c *Context) AddReading(ctx context.Context, in NewReading) (*reading.Reading, error) {
	if in.Timestamp == nil {
		now := time.Now().UTC()
		in.Timestamp = &now
	}

	r, err := c.api.CreateReading(ctx, in)
	if err != nil {
		c.setError(mutationMessage(err, msgAddReading))
		return nil, err
	}
	c.setError("")

	c.fetchLatest(ctx)

	c.mu.Lock()
	selected := c.state.Selected
	c.mu.Unlock()
	if selected != "" && selected == in.DeviceID {
		c.fetchHistory(ctx, selected)
	}
	return r, nil
}

// Refresh reloads devices, latest readings and the selected history.
func (c *Context) Refresh(ctx context.Context) error {
	err := c.fetchDevices(ctx)
	c.fetchLatest(ctx)

	c.mu.Lock()
	selected := c.state.Selected
	c.mu.Unlock()
	if selected != "" {
		c.fetchHistory(ctx, selected)
	}
	return err
}

// Snapshot returns a copy of the current state.
func (c *Context) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every accepted state
// change. The returned function removes it.
func (c *Context) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.listeners = slices.DeleteFunc(c.listeners, func(l listener) bool { return l.id == id })
	}
}

// fetchDevices loads the device list and auto-selects the first device
// when nothing is selected.
func (c *Context) fetchDevices(ctx context.Context) error {
	c.mu.Lock()
	c.devicesGen++
	gen := c.devicesGen
	c.mu.Unlock()
	c.beginLoading()
	defer c.endLoading()

	devices, err := c.api.Devices(ctx)

	c.mu.Lock()
	if gen != c.devicesGen || (err != nil && ctx.Err() != nil) {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.state.Error = msgFetchDevices
		snap := c.publishLocked()
		c.mu.Unlock()
		c.logger.Warn("fetching devices failed", "error", err)
		c.notify(snap)
		return err
	}

	c.state.Devices = devices
	autoSelect := ""
	if c.state.Selected == "" && len(devices) > 0 {
		autoSelect = devices[0].DeviceID
	}
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)

	if autoSelect != "" {
		c.Select(ctx, autoSelect)
	}
	return nil
}

// fetchLatest polls the latest readings. Failures are logged only.
func (c *Context) fetchLatest(ctx context.Context) {
	c.mu.Lock()
	if c.latestCancel != nil {
		c.latestCancel()
	}
	c.latestGen++
	gen := c.latestGen
	reqCtx, cancel := context.WithCancel(ctx)
	c.latestCancel = cancel
	c.mu.Unlock()
	defer cancel()

	latest, err := c.api.LatestReadings(reqCtx)

	c.mu.Lock()
	if gen != c.latestGen {
		c.mu.Unlock()
		c.logger.Debug("discarding superseded latest poll", "generation", gen)
		return
	}
	c.latestCancel = nil
	if reqCtx.Err() != nil {
		c.mu.Unlock()
		c.logger.Debug("latest poll cancelled", "generation", gen)
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Debug("latest poll failed", "error", err)
		return
	}
	c.state.Latest = latest
	c.state.LastPoll = time.Now()
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// fetchHistory loads the history of deviceID, oldest first. A 404 or any
// other failure leaves an empty history.
func (c *Context) fetchHistory(ctx context.Context, deviceID string) {
	c.mu.Lock()
	if c.historyCancel != nil {
		c.historyCancel()
	}
	c.historyGen++
	gen := c.historyGen
	reqCtx, cancel := context.WithCancel(ctx)
	c.historyCancel = cancel
	c.mu.Unlock()
	defer cancel()

	c.beginLoading()
	defer c.endLoading()

	history, err := c.api.History(reqCtx, deviceID, c.historyLimit)

	c.mu.Lock()
	if gen != c.historyGen || c.state.Selected != deviceID {
		c.mu.Unlock()
		c.logger.Debug("discarding stale history", "device_id", deviceID, "generation", gen)
		return
	}
	c.historyCancel = nil
	if reqCtx.Err() != nil {
		// Cancelled by Stop or the caller: keep what is shown.
		c.mu.Unlock()
		c.logger.Debug("history fetch cancelled", "device_id", deviceID, "generation", gen)
		return
	}
	if err != nil {
		if !IsNotFound(err) {
			c.logger.Debug("history fetch failed", "device_id", deviceID, "error", err)
		}
		history = nil
	}
	slices.Reverse(history)
	c.state.History = history
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Context) beginLoading() {
	c.mu.Lock()
	c.loadingCount++
	c.state.Loading = true
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Context) endLoading() {
	c.mu.Lock()
	c.loadingCount--
	c.state.Loading = c.loadingCount > 0
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Context) setError(msg string) {
	c.mu.Lock()
	c.state.Error = msg
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// mutationMessage prefers the API's own message over the generic one.
func mutationMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func (c *Context) snapshotLocked() State {
	s := c.state
	s.Devices = slices.Clone(c.state.Devices)
	s.Latest = slices.Clone(c.state.Latest)
	s.History = slices.Clone(c.state.History)
	return s
}

// publishLocked stamps the next sequence number on a snapshot destined
// for notify.
func (c *Context) publishLocked() State {
	c.seq++
	s := c.snapshotLocked()
	s.seq = c.seq
	return s
}

func (c *Context) notify(s State) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if s.seq <= c.delivered {
		return
	}
	c.delivered = s.seq

	c.mu.Lock()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()
	for _, l := range listeners {
		l.fn(s)
	}
}
