package station

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"stationsim/internal/ocppversion"
	"stationsim/internal/smartcharging"
)

// timerSet holds the cancel functions for the Station's periodic background
// work (heartbeat, per-connector meter values), so stopTimers can be called
// idempotently from onChannelClosed and stop.
type timerSet struct {
	mu      sync.Mutex
	cancels []context.CancelFunc
}

func (t *timerSet) add(cancel context.CancelFunc) {
	t.mu.Lock()
	t.cancels = append(t.cancels, cancel)
	t.mu.Unlock()
}

func (t *timerSet) stopAll() {
	t.mu.Lock()
	cancels := t.cancels
	t.cancels = nil
	t.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// startTimers launches the heartbeat loop and one meter-values loop per
// transaction connector, each bound to ctx (so they die with the station's
// Run context, not merely on disconnect).
func (s *Station) startTimers(ctx context.Context) {
	hbCtx, cancel := context.WithCancel(ctx)
	s.timers.add(cancel)
	go s.runHeartbeat(hbCtx)

	for _, connectorID := range s.model.TransactionConnectorIDs() {
		mvCtx, cancel := context.WithCancel(ctx)
		s.timers.add(cancel)
		go s.runMeterValues(mvCtx, connectorID)
	}
}

// stopTimers cancels every timer goroutine started by startTimers. Safe to
// call when none are running.
func (s *Station) stopTimers() {
	s.timers.stopAll()
}

func (s *Station) heartbeatInterval() time.Duration {
	key, ok := s.configStore.Get("HeartbeatInterval")
	if !ok {
		return 60 * time.Second
	}
	seconds, err := strconv.Atoi(key.Value)
	if err != nil || seconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func (s *Station) meterValueInterval() time.Duration {
	key, ok := s.configStore.Get("MeterValueSampleInterval")
	if !ok || key.Value == "0" {
		return 0
	}
	seconds, err := strconv.Atoi(key.Value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (s *Station) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.heartbeatInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			action, payload := s.requestService.Heartbeat()
			if _, err := s.engine.Call(ctx, action, payload, false); err != nil {
				s.logger.Warn("station: Heartbeat failed", zap.Error(err))
			}
		}
	}
}

// runMeterValues periodically samples and sends MeterValues for
// connectorID while it has a running transaction (spec.md §4.4/§4.5's
// beginEndMeterValues / ocppStrictCompliance / outOfOrderEndMeterValues
// flags gate the begin/end samples sent outside the regular interval).
func (s *Station) runMeterValues(ctx context.Context, connectorID int) {
	interval := s.meterValueInterval()

	if s.info.BeginEndMeterValues {
		s.sendMeterValueSample(ctx, connectorID, "Transaction.Begin")
	}

	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.runEndMeterValue(connectorID)
				return
			case <-ticker.C:
				c, ok := s.model.Connector(connectorID)
				if !ok || !c.TransactionStarted() {
					continue
				}
				s.sendMeterValueSample(ctx, connectorID, "Energy.Active.Import.Register")
			}
		}
	}

	<-ctx.Done()
	s.runEndMeterValue(connectorID)
}

func (s *Station) runEndMeterValue(connectorID int) {
	if !s.info.BeginEndMeterValues {
		return
	}
	if s.info.OcppStrictCompliance && !s.info.OutOfOrderEndMeterValues {
		return
	}
	s.sendMeterValueSample(context.Background(), connectorID, "Transaction.End")
}

func (s *Station) sendMeterValueSample(ctx context.Context, connectorID int, measurand string) {
	c, ok := s.model.Connector(connectorID)
	if !ok {
		return
	}
	var txID string
	if c.Transaction != nil {
		txID = c.Transaction.ID
	}

	value := s.meterReading(connectorID)
	samples := []ocppversion.MeterSample{{
		Measurand: measurand,
		Value:     strconv.FormatFloat(value, 'f', 1, 64),
		Unit:      "Wh",
	}}
	action, payload := s.requestService.MeterValues(connectorID, txID, samples, time.Now().UTC())
	if _, err := s.engine.Call(ctx, action, payload, false); err != nil {
		s.logger.Warn("station: MeterValues failed", zap.Int("connectorId", connectorID), zap.Error(err))
	}
}

// meterReading resolves the connector's smart-charging limit (if any) and
// reports it as the current reading in Wh, a reasonable stand-in for a real
// meter absent any energy-accumulation model in scope (spec.md §4.5's
// resolver is the only "measurement" surface this simulator has).
func (s *Station) meterReading(connectorID int) float64 {
	result, ok := s.smartcharge.Resolve(s.model, connectorID, time.Now().UTC(), s.buildSmartchargeParams())
	if !ok {
		return 0
	}
	return result.LimitWatts
}

func (s *Station) buildSmartchargeParams() smartcharging.Params {
	divider := s.info.PowerDivider(s.model.NumberOfEVSEs(), s.model.NumberOfConnectors(), s.model.RunningTransactionCount())
	return smartcharging.Params{
		CurrentType:  s.info.CurrentOutType,
		Voltage:      s.info.VoltageOut,
		Phases:       s.info.NumberOfPhases,
		MaximumPower: s.info.MaximumPower,
		PowerDivider: divider,
	}
}
