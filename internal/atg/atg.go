// Package atg implements the Automatic Transaction Generator collaborator
// (spec.md §4.7): the interface the Station Runtime drives (Start/Stop/
// Started), plus a concrete default generator that synthesizes
// StartTransaction/StopTransaction traffic on a randomized schedule per
// connector. spec.md treats ATG as an external, opaque collaborator; this
// package supplies the default implementation a complete simulator needs
// one for, grounded in the teacher's per-goroutine-per-resource pattern
// (backend/services/ocpp-server/internal/ws/connection.go's readPump/
// writePump: one goroutine owns one resource's lifecycle end to end).
package atg

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Generator is the interface the Station Runtime depends on (spec.md §4.7).
// For Stop, connectorIDs nil/empty means "every running connector"; Start
// takes the explicit connector ids to run.
type Generator interface {
	Start(connectorIDs []int)
	Stop(connectorIDs []int)
	Started() bool
}

// Driver is the narrow, non-owning handle the generator uses to actually
// move transactions, decoupling this package from internal/station
// (REDESIGN FLAGS cyclic-reference resolution, same shape as
// ocppversion.StationFacade / reservation.StatusNotifier).
type Driver interface {
	ConnectorAvailable(connectorID int) bool
	DriveStartTransaction(ctx context.Context, connectorID int, idTag string) error
	DriveStopTransaction(ctx context.Context, connectorID int) error
}

// Config is the parsed form of the template file's opaque
// AutomaticTransactionGenerator map (spec.md §6). Fields default to zero
// (disabled) when absent from the template.
type Config struct {
	Enable               bool     `json:"enable"`
	MinDelaySeconds       int      `json:"minDelayBetweenTwoTransactions"`
	MaxDelaySeconds       int      `json:"maxDelayBetweenTwoTransactions"`
	MinDurationSeconds    int      `json:"minDurationOfTransaction"`
	MaxDurationSeconds    int      `json:"maxDurationOfTransaction"`
	StopAbsoluteDuration  bool     `json:"stopAbsoluteDuration"`
	IdTags                []string `json:"idTagList"`
}

// ParseConfig decodes the template's opaque ATG map into a typed Config via
// a JSON round-trip, matching how internal/template treats every other
// pass-through document field.
func ParseConfig(raw map[string]interface{}) (Config, error) {
	var cfg Config
	if raw == nil {
		return cfg, nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(buf, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DefaultGenerator is the concrete synthetic-traffic ATG. One goroutine runs
// per active connector; each loop: wait a random delay, start a transaction
// on an available connector, run it for a random duration, stop it, repeat.
type DefaultGenerator struct {
	cfg    Config
	driver Driver
	logger *zap.Logger

	mu       sync.Mutex
	cancels  map[int]context.CancelFunc
	started  bool
}

// New returns a DefaultGenerator. It does nothing until Start is called.
func New(cfg Config, driver Driver, logger *zap.Logger) *DefaultGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultGenerator{
		cfg:     cfg,
		driver:  driver,
		logger:  logger,
		cancels: make(map[int]context.CancelFunc),
	}
}

var _ Generator = (*DefaultGenerator)(nil)

// Start launches the generator loop for each connector id not already
// running. A nil/empty connectorIDs list is a caller error here — the
// Station Runtime resolves "every connector" to an explicit id list before
// calling Start (it alone knows the station's connector topology).
func (g *DefaultGenerator) Start(connectorIDs []int) {
	if !g.cfg.Enable {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range connectorIDs {
		if _, running := g.cancels[id]; running {
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		g.cancels[id] = cancel
		go g.runConnector(ctx, id)
	}
	g.started = len(g.cancels) > 0
}

// Stop cancels the generator loop for each given connector id (or every
// running one, if connectorIDs is empty).
func (g *DefaultGenerator) Stop(connectorIDs []int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := connectorIDs
	if len(ids) == 0 {
		for id := range g.cancels {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		if cancel, ok := g.cancels[id]; ok {
			cancel()
			delete(g.cancels, id)
		}
	}
	g.started = len(g.cancels) > 0
}

// Started reports whether any connector's generator loop is currently
// running.
func (g *DefaultGenerator) Started() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

func (g *DefaultGenerator) runConnector(ctx context.Context, connectorID int) {
	for {
		delay := randomDuration(g.cfg.MinDelaySeconds, g.cfg.MaxDelaySeconds)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if !g.driver.ConnectorAvailable(connectorID) {
			continue
		}

		idTag := g.pickIdTag()
		if err := g.driver.DriveStartTransaction(ctx, connectorID, idTag); err != nil {
			g.logger.Warn("atg: start transaction failed", zap.Int("connectorId", connectorID), zap.Error(err))
			continue
		}

		duration := randomDuration(g.cfg.MinDurationSeconds, g.cfg.MaxDurationSeconds)
		select {
		case <-ctx.Done():
			return
		case <-time.After(duration):
		}

		if err := g.driver.DriveStopTransaction(ctx, connectorID); err != nil {
			g.logger.Warn("atg: stop transaction failed", zap.Int("connectorId", connectorID), zap.Error(err))
		}

		if g.cfg.StopAbsoluteDuration {
			return
		}
	}
}

func (g *DefaultGenerator) pickIdTag() string {
	if len(g.cfg.IdTags) == 0 {
		return "ATG-DEFAULT"
	}
	return g.cfg.IdTags[rand.IntN(len(g.cfg.IdTags))]
}

// randomDuration returns a uniformly random duration in [min, max] seconds.
// When max <= min it returns min seconds, or one second if min <= 0.
// No distribution library appears anywhere in the example pack for this
// concern, so this falls back to the standard library (DESIGN.md's required
// justification for a stdlib-only piece).
func randomDuration(min, max int) time.Duration {
	if max <= min {
		if min <= 0 {
			return time.Second
		}
		return time.Duration(min) * time.Second
	}
	span := max - min
	return time.Duration(min+rand.IntN(span+1)) * time.Second
}
