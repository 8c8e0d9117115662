package station

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"stationsim/internal/model"
	"stationsim/internal/template"
)

// resolveBootStatus implements spec.md §4.4's "boot connector status
// resolution": a persisted status wins over the template-declared bootStatus,
// which wins over Unavailable when the station or connector is marked
// inoperative, which finally falls back to Available.
func (s *Station) resolveBootStatus(connectorID int) model.ConnectorStatus {
	if status, ok := persistedConnectorStatus(s.connectorsStatus, connectorID); ok {
		return status
	}

	connector, ok := s.model.Connector(connectorID)
	if !ok {
		return model.StatusAvailable
	}
	if connector.BootStatus != nil {
		return *connector.BootStatus
	}

	if connector.Availability == model.AvailabilityInoperative {
		return model.StatusUnavailable
	}
	if stationWide, ok := s.model.Connector(0); ok && stationWide.Availability == model.AvailabilityInoperative {
		return model.StatusUnavailable
	}
	return model.StatusAvailable
}

// persistedConnectorStatus reads the "Status" field out of the raw
// connectorsStatus map the reconciler carries forward from the last
// configuration file (internal/template.Result.ConnectorsStatus): a
// map[string]interface{} keyed by connector id, round-tripped through JSON
// from a *model.Connector that has no struct tags, so its keys are the bare
// Go field names.
func persistedConnectorStatus(raw map[string]interface{}, connectorID int) (model.ConnectorStatus, bool) {
	if raw == nil {
		return "", false
	}
	entry, ok := raw[strconv.Itoa(connectorID)]
	if !ok {
		return "", false
	}
	fields, ok := entry.(map[string]interface{})
	if !ok {
		return "", false
	}
	value, ok := fields["Status"].(string)
	if !ok || value == "" {
		return "", false
	}
	return model.ConnectorStatus(value), true
}

// runBootSequence sends one StatusNotification per transaction connector
// using resolveBootStatus's resolution and applies the resolved status
// to the live model (spec.md §4.4 "On Accepted: ... runs the boot message
// sequence").
func (s *Station) runBootSequence(ctx context.Context) {
	for _, connectorID := range s.model.TransactionConnectorIDs() {
		status := s.resolveBootStatus(connectorID)
		if err := s.model.Mutate(connectorID, func(c *model.Connector) { c.Status = status }); err != nil {
			s.logger.Warn("station: boot status mutate failed", zap.Int("connectorId", connectorID), zap.Error(err))
			continue
		}
		s.sendStatusNotification(ctx, connectorID, status, "NoError")
	}
}

// runFirmwareInstallSequence simulates an in-progress firmware upgrade
// (spec.md §4.4 "transitions firmware Installing→Installed if applicable"):
// it is only run once, on the first boot after a firmwareUpgrade is
// configured, since a persisted/reconciled FirmwareVersion that already
// matches the bumped value means the upgrade already completed on a prior
// run.
func (s *Station) runFirmwareInstallSequence(ctx context.Context) {
	if !s.firmwarePendingInstall || s.info.FirmwareUpgrade == nil {
		return
	}
	s.firmwarePendingInstall = false

	s.sendFirmwareStatus(ctx, "Installing")

	next, err := template.BumpFirmwareVersion(s.info.FirmwareVersion, s.info.FirmwareVersionPattern, *s.info.FirmwareUpgrade)
	if err != nil {
		s.logger.Warn("station: firmware bump failed", zap.Error(err))
		s.sendFirmwareStatus(ctx, "InstallationFailed")
		return
	}
	s.info.FirmwareVersion = next
	s.sendFirmwareStatus(ctx, "Installed")

	if s.info.FirmwareUpgrade.Reset {
		go s.reset(context.Background(), "FirmwareUpgrade")
	}
}

func (s *Station) sendFirmwareStatus(ctx context.Context, status string) {
	action, payload := s.requestService.FirmwareStatusNotification(status)
	if _, err := s.engine.Call(ctx, action, payload, false); err != nil {
		s.logger.Warn("station: FirmwareStatusNotification failed", zap.String("status", status), zap.Error(err))
	}
}

func (s *Station) sendStatusNotification(ctx context.Context, connectorID int, status model.ConnectorStatus, errorCode string) {
	action, payload := s.requestService.StatusNotification(connectorID, status, errorCode)
	if _, err := s.engine.Call(ctx, action, payload, false); err != nil {
		s.logger.Warn("station: StatusNotification failed", zap.Int("connectorId", connectorID), zap.Error(err))
	}
}

// shutdownStatusSequence sends StatusNotification(Unavailable) for every
// connector>0 (spec.md §4.4 "stop(reason, stopTransactions?): ... sends
// StatusNotification(Unavailable) for each connector>0").
func (s *Station) shutdownStatusSequence(ctx context.Context) {
	for _, connectorID := range s.model.TransactionConnectorIDs() {
		s.sendStatusNotification(ctx, connectorID, model.StatusUnavailable, "NoError")
	}
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
