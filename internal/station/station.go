// Package station implements the Station Runtime (spec.md §4.4/K): the
// top-level state machine that owns a station's Model, Engine, Message
// Channel, and collaborators (smart charging, reservations, ATG), and drives
// them through Starting→Connecting→Registering→Accepted/Pending/Rejected→
// Operating→Stopping. Grounded on
// backend/services/ocpp-server/internal/app/app.go's New/Run/Close wiring
// shape and backend/services/auth-service/cmd/auth-service/main.go's signal
// handling for the outer loop, generalized from a single long-lived server
// process to one per-station actor.
package station

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"stationsim/internal/asynclock"
	"stationsim/internal/atg"
	"stationsim/internal/channel"
	"stationsim/internal/configstore"
	"stationsim/internal/engine"
	"stationsim/internal/model"
	"stationsim/internal/ocppversion"
	"stationsim/internal/ocppversion/v16"
	"stationsim/internal/ocppversion/v201"
	"stationsim/internal/reservation"
	"stationsim/internal/secret"
	"stationsim/internal/smartcharging"
	"stationsim/internal/stats"
	"stationsim/internal/template"
)

// State enumerates the Station Runtime's lifecycle states (spec.md §4.4).
type State string

const (
	StateStopped     State = "Stopped"
	StateStarting    State = "Starting"
	StateConnecting  State = "Connecting"
	StateRegistering State = "Registering"
	StateAccepted    State = "Accepted"
	StatePending     State = "Pending"
	StateRejected    State = "Rejected"
	StateOperating   State = "Operating"
	StateStopping    State = "Stopping"
)

// Config bundles everything New needs to assemble a Station. Reconciled is
// the template reconciler's output (internal/template.Reconcile); the
// remaining fields are process-level wiring shared across every station the
// simulator runs.
type Config struct {
	Reconciled  template.Result
	ConfigPath  string
	SecretBox   *secret.Box
	Locks       *asynclock.Registry
	Logger      *zap.Logger
	Events      EventSink
	Credentials channel.Credentials
}

// Station is one simulated charge point: its identity, its owned
// Connector/EVSE model, and the collaborators the Station Runtime drives
// through the OCPP lifecycle.
type Station struct {
	id     string
	info   template.StationInfo
	model  *model.Model
	logger *zap.Logger
	events EventSink

	configStore *configstore.Store
	engine      *engine.Engine
	requestService ocppversion.RequestService
	reservations   *reservation.Manager
	smartcharge    *smartcharging.Resolver
	atgGen         atg.Generator

	secretBox  *secret.Box
	locks      *asynclock.Registry
	configPath string

	atgRaw           template.ATGTemplate
	atgStatuses      map[string]interface{}
	connectorsStatus map[string]interface{}
	evsesStatus      map[string]interface{}

	firmwarePendingInstall bool

	mu    sync.Mutex
	state State
	conn       *channel.Connection
	connClosed <-chan struct{}
	rootCtx    context.Context
	cancelRun  context.CancelFunc

	txMu sync.Mutex
	txIDs map[int]string // connector id -> locally-assigned transaction id

	credentials channel.Credentials

	timers timerSet
}

// New assembles a Station from cfg. It wires the Station itself as the
// narrow facade/driver/notifier its collaborators need (ocppversion.StationFacade,
// reservation.StatusNotifier, atg.Driver), exploiting that s is already a
// valid pointer before its own fields are fully populated — the same
// forward-reference pattern backend/services/ocpp-server/internal/app/app.go
// uses when wiring its router before its HTTP server is constructed.
func New(cfg Config) (*Station, error) {
	res := cfg.Reconciled
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Station{
		id:               res.Info.StationID,
		info:             res.Info,
		model:            res.Model,
		logger:           logger,
		events:           cfg.Events,
		configStore:      res.ConfigStore,
		secretBox:        cfg.SecretBox,
		locks:            cfg.Locks,
		configPath:       cfg.ConfigPath,
		atgRaw:           res.ATG,
		atgStatuses:      res.ATGStatuses,
		connectorsStatus: res.ConnectorsStatus,
		evsesStatus:      res.EvsesStatus,
		credentials:      cfg.Credentials,
		state:            StateStopped,
		txIDs:            make(map[int]string),
	}

	var incoming engine.IncomingRequestService
	switch res.Info.OcppVersion {
	case "2.0.1", "2.0":
		s.requestService = v201.RequestService{}
		incoming = v201.IncomingRequestService{Facade: s}
	default:
		s.requestService = v16.RequestService{}
		incoming = v16.IncomingRequestService{Facade: s}
	}

	statsReg := stats.NewRegistry(0)
	s.engine = engine.New(engine.Config{Logger: logger, Stats: statsReg, Incoming: incoming})

	s.reservations = reservation.New(reservation.Config{Model: s.model, Notifier: s, Logger: logger})

	s.smartcharge = smartcharging.New(logger)

	atgCfg, err := atg.ParseConfig(res.ATG)
	if err != nil {
		return nil, fmt.Errorf("station: parse ATG config: %w", err)
	}
	s.atgGen = atg.New(atgCfg, s, logger)

	if cfg.Locks == nil {
		s.locks = asynclock.NewRegistry()
	}

	s.firmwarePendingInstall = res.Info.FirmwareUpgrade != nil && !res.FirmwareAlreadyInstalled

	return s, nil
}

// ID returns the station's identity (spec.md §3).
func (s *Station) ID() string { return s.id }

// State reports the Station Runtime's current lifecycle state.
func (s *Station) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Station) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		s.emit(EventStateChanged, string(prev)+"->"+string(next))
	}
}

// Run drives the Station through its full lifecycle until ctx is canceled or
// a terminal, non-recoverable condition is reached (spec.md §4.4's top-level
// loop: connect, register, operate, and on abnormal close, reconnect bounded
// by autoReconnectMaxRetries, honoring stopOnConnectionFailure).
func (s *Station) Run(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	s.mu.Lock()
	s.rootCtx = parentCtx
	s.cancelRun = cancel
	s.mu.Unlock()
	defer cancel()

	s.setState(StateStarting)
	backoff := channel.NewBackoff(time.Second, 5*time.Minute, s.info.ReconnectExponentialDelay)

	for {
		accepted, err := s.connectAndRegister(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateStopped)
				return nil
			}
			s.logger.Warn("station: connect/register failed", zap.String("stationId", s.id), zap.Error(err))
			if !s.waitReconnect(ctx, backoff) {
				s.setState(StateStopped)
				return err
			}
			continue
		}
		backoff.Reset()

		if !accepted {
			// Pending/Rejected: hold the connection open (CSMS may accept
			// later) but do not run the boot sequence or start ATG.
			<-ctx.Done()
			s.setState(StateStopped)
			return nil
		}

		s.runOperating(ctx)

		if ctx.Err() != nil {
			s.setState(StateStopped)
			return nil
		}
		if s.info.StopOnConnectionFailure {
			s.setState(StateStopped)
			return nil
		}
		if !s.waitReconnect(ctx, backoff) {
			s.setState(StateStopped)
			return fmt.Errorf("station: %s: exhausted autoReconnectMaxRetries", s.id)
		}
	}
}

// connectAndRegister dials the Message Channel and runs the registration
// loop, returning whether the CSMS accepted the station.
func (s *Station) connectAndRegister(ctx context.Context) (accepted bool, err error) {
	s.setState(StateConnecting)
	conn, closed, err := s.connect(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.conn = conn
	s.connClosed = closed
	s.mu.Unlock()
	s.engine.SetSender(conn)
	s.engine.SetOpen(true)
	s.emit(EventConnected, "channel open")

	s.setState(StateRegistering)
	accepted, err = s.register(ctx)
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// connect dials the station's supervision URL over the Message Channel and
// returns the live connection plus a channel closed when the connection's
// read pump exits.
func (s *Station) connect(ctx context.Context) (*channel.Connection, <-chan struct{}, error) {
	url := s.supervisionURL()
	subprotocol := "ocpp1.6"
	if s.info.OcppVersion == "2.0.1" || s.info.OcppVersion == "2.0" {
		subprotocol = "ocpp2.0.1"
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if s.info.ConnectionTimeOut > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, s.info.ConnectionTimeOut)
		defer cancel()
	}

	ws, resp, err := channel.Dial(dialCtx, url, subprotocol, s.credentials)
	if err != nil {
		if resp != nil {
			return nil, nil, fmt.Errorf("station: dial %s: %w (http %d)", url, err, resp.StatusCode)
		}
		return nil, nil, err
	}

	closed := make(chan struct{})
	conn := channel.NewConnection(s.id, ws, s.engine, s.logger, func(error) { close(closed) })
	go conn.Run(ctx)
	return conn, closed, nil
}

func (s *Station) supervisionURL() string {
	if len(s.info.SupervisionUrls) == 0 {
		return ""
	}
	return s.info.SupervisionUrls[0]
}

// bootStatusResponse is the version-agnostic shape the Station Runtime reads
// a BootNotification CALLRESULT into; v16 and v201's own response structs
// both decode into the same three fields.
type bootStatusResponse struct {
	Status      string    `json:"status"`
	CurrentTime time.Time `json:"currentTime"`
	Interval    int       `json:"interval"`
}

// register runs spec.md §4.4's registration loop: send BootNotification,
// honor the returned Interval between retries, stop after
// registrationMaxRetries attempts (-1 means unlimited). It returns accepted
// when the CSMS status is "Accepted".
func (s *Station) register(ctx context.Context) (bool, error) {
	bootInfo := ocppversion.BootInfo{
		ChargePointVendor:       s.info.ChargePointVendor,
		ChargePointModel:        s.info.ChargePointModel,
		ChargePointSerialNumber: s.info.ChargePointSerialNumber,
		ChargeBoxSerialNumber:   s.info.ChargeBoxSerialNumber,
		FirmwareVersion:         s.info.FirmwareVersion,
		MeterType:               s.info.MeterType,
	}
	action, payload := s.requestService.BootNotification(bootInfo)

	interval := 10 * time.Second
	attempts := 0
	for {
		attempts++
		raw, err := s.engine.Call(ctx, action, payload, false)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if s.exhaustedRegistrationRetries(attempts) {
				return false, fmt.Errorf("station: %s: exhausted registrationMaxRetries: %w", s.id, err)
			}
			if !sleepCtx(ctx, interval) {
				return false, ctx.Err()
			}
			continue
		}

		var resp bootStatusResponse
		if err := decodeJSON(raw, &resp); err != nil {
			return false, fmt.Errorf("station: decode BootNotification response: %w", err)
		}
		if resp.Interval > 0 {
			interval = time.Duration(resp.Interval) * time.Second
		}

		switch resp.Status {
		case "Accepted":
			s.onAccepted(ctx)
			return true, nil
		case "Pending":
			s.setState(StatePending)
			if s.exhaustedRegistrationRetries(attempts) {
				return false, nil
			}
			if !sleepCtx(ctx, interval) {
				return false, ctx.Err()
			}
		default: // Rejected
			if s.exhaustedRegistrationRetries(attempts) {
				s.setState(StateRejected)
				return false, nil
			}
			if !sleepCtx(ctx, interval) {
				return false, ctx.Err()
			}
		}
	}
}

func (s *Station) exhaustedRegistrationRetries(attempts int) bool {
	max := s.info.RegistrationMaxRetries
	return max >= 0 && attempts >= max
}

// onAccepted runs the boot message sequence, starts ATG if configured, and
// flips the Engine's buffer gate (spec.md §4.4 "On Accepted: ...").
func (s *Station) onAccepted(ctx context.Context) {
	s.setState(StateAccepted)
	s.engine.SetAccepted(true)

	s.runBootSequence(ctx)
	s.runFirmwareInstallSequence(ctx)

	if s.atgGen != nil {
		s.atgGen.Start(s.model.TransactionConnectorIDs())
	}

	s.setState(StateOperating)
	s.startTimers(ctx)

	s.saveConfiguration()
}

// runOperating blocks until the connection's read pump exits (abnormal close,
// triggering a reconnect in Run's loop) or the Run context is canceled
// outright (shutdown), then runs the shared channel-closed cleanup.
func (s *Station) runOperating(ctx context.Context) {
	s.mu.Lock()
	conn := s.conn
	closed := s.connClosed
	s.mu.Unlock()
	if conn == nil {
		return
	}
	select {
	case <-closed:
	case <-ctx.Done():
	}
	s.onChannelClosed()
}

func (s *Station) onChannelClosed() {
	s.engine.SetOpen(false)
	s.engine.SetAccepted(false)
	s.stopTimers()
	if s.atgGen != nil {
		s.atgGen.Stop(nil)
	}
	s.emit(EventDisconnected, "channel closed")
	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()
}

// waitReconnect sleeps for the next backoff delay, bounded by
// autoReconnectMaxRetries (-1 means unlimited). It returns false when the
// retry budget is exhausted or ctx is canceled.
func (s *Station) waitReconnect(ctx context.Context, backoff *channel.Backoff) bool {
	max := s.info.AutoReconnectMaxRetries
	if max >= 0 && backoff.Attempt() >= max {
		return false
	}
	delay := backoff.Next()
	s.logger.Info("station: reconnecting", zap.String("stationId", s.id), zap.Duration("delay", delay))
	return sleepCtx(ctx, delay)
}

// stop implements spec.md §4.4's stop(reason, stopTransactions?): it marks
// every connector Unavailable, optionally ends running transactions, stops
// ATG, and tears down the connection.
func (s *Station) stop(ctx context.Context, reason string, stopTransactions bool) {
	s.setState(StateStopping)
	s.stopTimers()
	if s.atgGen != nil {
		s.atgGen.Stop(nil)
	}

	if stopTransactions || s.info.StopTransactionsOnStopped {
		for _, id := range s.model.TransactionConnectorIDs() {
			if c, ok := s.model.Connector(id); ok && c.TransactionStarted() {
				_ = s.endTransaction(ctx, id, reason)
			}
		}
	}

	s.shutdownStatusSequence(ctx)

	s.mu.Lock()
	conn := s.conn
	cancel := s.cancelRun
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	s.setState(StateStopped)
}

// reset implements spec.md §4.4's reset(reason): it stops the station
// (ending transactions, tearing down the connection) then, after resetTime,
// relaunches Run against the root context the station was originally started
// with — Reset (the facade method) runs this in its own goroutine so the
// CALLRESULT can be returned to the CSMS before the teardown completes.
func (s *Station) reset(ctx context.Context, reason string) {
	s.stop(ctx, reason, true)

	delay := s.info.ResetTime
	if delay <= 0 {
		delay = 2 * time.Second
	}
	time.Sleep(delay)

	s.mu.Lock()
	root := s.rootCtx
	s.mu.Unlock()
	if root == nil || root.Err() != nil {
		return
	}
	if err := s.Run(root); err != nil {
		s.logger.Warn("station: restart after reset failed", zap.String("stationId", s.id), zap.Error(err))
	}
}

func (s *Station) saveConfiguration() {
	if s.locks == nil || s.configPath == "" {
		return
	}
	s.locks.With(s.id, func() {
		res := template.Result{
			Info:             s.info,
			Model:            s.model,
			ConfigStore:      s.configStore,
			ATG:              s.atgRaw,
			ATGStatuses:      s.atgStatuses,
			ConnectorsStatus: s.connectorsStatus,
			EvsesStatus:      s.evsesStatus,
		}
		doc, err := template.BuildConfigurationDocument(res, s.secretBox)
		if err != nil {
			s.logger.Warn("station: build configuration document failed", zap.String("stationId", s.id), zap.Error(err))
			return
		}
		if err := template.SaveConfiguration(s.configPath, doc); err != nil {
			s.logger.Warn("station: save configuration failed", zap.String("stationId", s.id), zap.Error(err))
		}
	})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func decodeJSON(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}
