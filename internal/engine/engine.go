package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stationsim/internal/stats"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultFlushInterval = 60 * time.Second
)

// Sender transmits a serialized frame over the Message Channel. Implemented
// by *channel.Connection.
type Sender interface {
	Send(frame []byte)
}

// IncomingRequestService handles a CALL received from the peer and returns
// either a CALLRESULT payload or a CALLERROR, matching spec.md §4.3's
// "invoke the IncomingRequestService; send CALLRESULT or CALLERROR back".
// Implemented per OCPP version by internal/ocppversion.
type IncomingRequestService interface {
	HandleCall(ctx context.Context, action string, payload json.RawMessage) (response interface{}, callErr *Error)
}

type pendingRequest struct {
	action   string
	resultCh chan callOutcome
	timer    *time.Timer
	sentAt   time.Time
}

type callOutcome struct {
	payload json.RawMessage
	err     error
}

// Engine is the per-station request cache, outgoing buffer, and dispatcher
// (spec.md §3's CachedRequest tuple + §4.3). Grounded on
// csms/internal/ocpp/commands.go's CommandManager/stationSession pair,
// collapsed to a single session since one Engine instance always belongs to
// exactly one station (unlike the teacher's server, which multiplexes many
// stations through one CommandManager).
type Engine struct {
	logger  *zap.Logger
	timeout time.Duration
	stats   *stats.Registry

	sendMu  sync.Mutex // serializes writes to sender; a CALL is not held back until the previous CALL's response
	sender  Sender
	pendMu  sync.Mutex
	pending map[string]*pendingRequest

	bufMu         sync.Mutex
	buffer        map[string][]byte
	bufferOrder   []string
	flushTimer    *time.Timer
	flushInterval time.Duration
	open          bool
	accepted      bool

	incoming IncomingRequestService
}

// Config bundles Engine construction parameters.
type Config struct {
	Timeout       time.Duration
	FlushInterval time.Duration
	Stats         *stats.Registry
	Logger        *zap.Logger
	Incoming      IncomingRequestService
}

// New returns an Engine with no attached Sender; call SetSender once the
// Message Channel connects.
func New(cfg Config) *Engine {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	statsReg := cfg.Stats
	if statsReg == nil {
		statsReg = stats.NewRegistry(0)
	}
	return &Engine{
		logger:        logger,
		timeout:       timeout,
		stats:         statsReg,
		pending:       make(map[string]*pendingRequest),
		buffer:        make(map[string][]byte),
		flushInterval: flush,
		incoming:      cfg.Incoming,
	}
}

// SetSender attaches (or detaches, with nil) the live transport.
func (e *Engine) SetSender(s Sender) {
	e.sendMu.Lock()
	e.sender = s
	e.sendMu.Unlock()
}

// SetOpen marks whether the Message Channel is currently connected.
func (e *Engine) SetOpen(open bool) {
	e.bufMu.Lock()
	e.open = open
	e.bufMu.Unlock()
	if open {
		e.Flush()
	}
}

// SetAccepted marks whether the station has completed registration
// (spec.md §4.3 "flush is gated on channel-open AND station-registered-accepted").
func (e *Engine) SetAccepted(accepted bool) {
	e.bufMu.Lock()
	e.accepted = accepted
	e.bufMu.Unlock()
	if accepted {
		e.Flush()
	}
}

// Call sends a CALL for action/payload and blocks until a CALLRESULT,
// CALLERROR, timeout, or ctx cancellation. skipBufferingOnError, when true,
// makes a closed channel reject immediately instead of buffering the frame.
func (e *Engine) Call(ctx context.Context, action string, payload interface{}, skipBufferingOnError bool) (json.RawMessage, error) {
	messageID := uuid.NewString()
	frame, err := BuildCall(messageID, action, payload)
	if err != nil {
		return nil, fmt.Errorf("engine: build CALL %s: %w", action, err)
	}
	e.stats.RecordRequest(action, len(frame))

	req := &pendingRequest{action: action, resultCh: make(chan callOutcome, 1)}
	e.pendMu.Lock()
	e.pending[messageID] = req
	e.pendMu.Unlock()

	if e.canSendNow() {
		e.dispatch(messageID, frame, req)
	} else if skipBufferingOnError {
		e.removePending(messageID)
		return nil, &Error{Code: ErrorCodeGenericError, Description: "channel not open"}
	} else {
		e.bufferFrame(messageID, frame)
	}

	select {
	case outcome := <-req.resultCh:
		return outcome.payload, outcome.err
	case <-ctx.Done():
		e.removePending(messageID)
		return nil, ctx.Err()
	}
}

// canSendNow reports whether a fresh Call may be sent immediately rather
// than buffered: the channel must be open and a Sender attached.
func (e *Engine) canSendNow() bool {
	e.bufMu.Lock()
	open := e.open
	e.bufMu.Unlock()
	e.sendMu.Lock()
	hasSender := e.sender != nil
	e.sendMu.Unlock()
	return open && hasSender
}

func (e *Engine) dispatch(messageID string, frame []byte, req *pendingRequest) {
	e.sendMu.Lock()
	sender := e.sender
	if sender != nil {
		req.sentAt = time.Now()
		sender.Send(frame)
	}
	e.sendMu.Unlock()

	if sender == nil {
		// Defensive: should not happen since nextBuffered/canSendNow both
		// gate on a Sender being attached. Re-queue rather than drop.
		e.bufMu.Lock()
		e.buffer[messageID] = frame
		e.bufferOrder = append(e.bufferOrder, messageID)
		e.bufMu.Unlock()
		return
	}

	req.timer = time.AfterFunc(e.timeout, func() { e.handleTimeout(messageID) })
}

func (e *Engine) bufferFrame(messageID string, frame []byte) {
	e.bufMu.Lock()
	if _, exists := e.buffer[messageID]; !exists {
		e.buffer[messageID] = frame
		e.bufferOrder = append(e.bufferOrder, messageID)
	}
	if e.flushTimer == nil {
		e.flushTimer = time.AfterFunc(e.flushInterval, e.Flush)
	}
	e.bufMu.Unlock()
}

// Flush sends every buffered frame while the channel is open and the
// station is registered-accepted, in FIFO order.
func (e *Engine) Flush() {
	for {
		messageID, frame, ok := e.nextBuffered()
		if !ok {
			return
		}
		e.pendMu.Lock()
		req, pending := e.pending[messageID]
		e.pendMu.Unlock()
		if !pending {
			continue
		}
		e.dispatch(messageID, frame, req)
	}
}

func (e *Engine) nextBuffered() (string, []byte, bool) {
	e.sendMu.Lock()
	hasSender := e.sender != nil
	e.sendMu.Unlock()

	e.bufMu.Lock()
	defer e.bufMu.Unlock()
	if !e.open || !e.accepted || !hasSender || len(e.bufferOrder) == 0 {
		if len(e.bufferOrder) == 0 && e.flushTimer != nil {
			e.flushTimer.Stop()
			e.flushTimer = nil
		}
		return "", nil, false
	}
	messageID := e.bufferOrder[0]
	e.bufferOrder = e.bufferOrder[1:]
	frame := e.buffer[messageID]
	delete(e.buffer, messageID)
	if len(e.bufferOrder) == 0 && e.flushTimer != nil {
		e.flushTimer.Stop()
		e.flushTimer = nil
	}
	return messageID, frame, true
}

func (e *Engine) removePending(messageID string) {
	e.pendMu.Lock()
	req, ok := e.pending[messageID]
	delete(e.pending, messageID)
	e.pendMu.Unlock()
	if ok && req.timer != nil {
		req.timer.Stop()
	}
}

func (e *Engine) handleTimeout(messageID string) {
	e.pendMu.Lock()
	req, ok := e.pending[messageID]
	if ok {
		delete(e.pending, messageID)
	}
	e.pendMu.Unlock()
	if !ok {
		return
	}
	e.stats.RecordError(req.action)
	req.resultCh <- callOutcome{err: &Error{Code: ErrorCodeGenericError, Description: "response timeout"}}
}

// HandleFrame parses and dispatches one inbound frame (spec.md §4.3 receive
// path). It implements channel.Handler.
func (e *Engine) HandleFrame(ctx context.Context, raw []byte) {
	frame, err := ParseFrame(raw)
	if err != nil {
		e.logger.Warn("engine: malformed inbound frame", zap.Error(err))
		return
	}

	switch frame.Type {
	case MessageTypeCall:
		e.handleIncomingCall(ctx, frame)
	case MessageTypeCallResult:
		e.handleCallResult(frame)
	case MessageTypeCallError:
		e.handleCallError(frame)
	}
}

func (e *Engine) handleIncomingCall(ctx context.Context, frame Frame) {
	var response interface{}
	var callErr *Error

	if e.incoming == nil {
		callErr = &Error{Code: ErrorCodeNotImplemented, Description: "no incoming request service configured"}
	} else {
		response, callErr = e.incoming.HandleCall(ctx, frame.Action, frame.Payload)
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	if e.sender == nil {
		return
	}

	var out []byte
	var err error
	if callErr != nil {
		out, err = BuildCallError(frame.MessageID, callErr)
	} else {
		out, err = BuildCallResult(frame.MessageID, response)
	}
	if err != nil {
		e.logger.Warn("engine: build response frame failed", zap.String("action", frame.Action), zap.Error(err))
		return
	}
	e.sender.Send(out)
}

func (e *Engine) handleCallResult(frame Frame) {
	e.pendMu.Lock()
	req, ok := e.pending[frame.MessageID]
	if ok {
		delete(e.pending, frame.MessageID)
	}
	e.pendMu.Unlock()
	if !ok {
		e.logger.Info("engine: CALLRESULT for unknown message id", zap.String("messageId", frame.MessageID))
		return
	}
	if req.timer != nil {
		req.timer.Stop()
	}
	e.stats.RecordResponse(req.action, time.Since(req.sentAt))
	req.resultCh <- callOutcome{payload: frame.Payload}
}

func (e *Engine) handleCallError(frame Frame) {
	e.pendMu.Lock()
	req, ok := e.pending[frame.MessageID]
	if ok {
		delete(e.pending, frame.MessageID)
	}
	e.pendMu.Unlock()
	if !ok {
		e.logger.Info("engine: CALLERROR for unknown message id", zap.String("messageId", frame.MessageID))
		return
	}
	if req.timer != nil {
		req.timer.Stop()
	}
	e.stats.RecordError(req.action)
	var details map[string]string
	if len(frame.ErrorDetail) > 0 {
		_ = json.Unmarshal(frame.ErrorDetail, &details)
	}
	req.resultCh <- callOutcome{err: &Error{Code: ErrorCode(frame.ErrorCode), Description: frame.ErrorDesc, Details: details}}
}

// Stats exposes the engine's performance registry (spec.md §3 Statistics).
func (e *Engine) Stats() *stats.Registry {
	return e.stats
}
