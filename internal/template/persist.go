package template

import (
	"encoding/json"
	"fmt"
	"os"

	"stationsim/internal/jsonutil"
	"stationsim/internal/model"
	"stationsim/internal/secret"
)

// LoadTemplate reads and returns the raw bytes of a template file, deferring
// parsing to Reconcile so callers can hash the exact bytes on disk.
func LoadTemplate(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template: read %s: %w", path, err)
	}
	return raw, nil
}

// LoadConfiguration reads a previously persisted configuration document, if
// any. A missing file is not an error: it means this is the station's first
// boot.
func LoadConfiguration(path string) (*ConfigurationDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("template: read configuration %s: %w", path, err)
	}
	var doc ConfigurationDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("template: parse configuration %s: %w", path, err)
	}
	return &doc, nil
}

// BuildConfigurationDocument serializes a Result into the document persisted
// to disk (spec.md §6). box may be nil, in which case the Basic-Auth password
// is stored as given (useful for tests and for deployments that accept
// plaintext-at-rest).
func BuildConfigurationDocument(res Result, box *secret.Box) (ConfigurationDocument, error) {
	sealedPassword := res.Info.BasicAuthPassword
	if box != nil && sealedPassword != "" && !secret.IsSealed(sealedPassword) {
		sealed, err := box.Seal(sealedPassword)
		if err != nil {
			return ConfigurationDocument{}, fmt.Errorf("template: seal basic auth password: %w", err)
		}
		sealedPassword = sealed
	}

	snap := res.Model.Snapshot()
	connStatus := snapshotToMap(snap.Connectors)
	var evseStatus map[string]interface{}
	if snap.EVSEs != nil {
		evseStatus = make(map[string]interface{}, len(snap.EVSEs))
		for id, e := range snap.EVSEs {
			evseStatus[fmt.Sprintf("%d", id)] = e
		}
	}

	keys := res.ConfigStore.AllKeys()

	doc := ConfigurationDocument{
		StationInfo: &PersistedStationInfo{
			StationID:               res.Info.StationID,
			TemplateHash:            res.Info.TemplateHash,
			ChargePointVendor:       res.Info.ChargePointVendor,
			ChargePointModel:        res.Info.ChargePointModel,
			ChargeBoxSerialNumber:   res.Info.ChargeBoxSerialNumber,
			ChargePointSerialNumber: res.Info.ChargePointSerialNumber,
			MeterSerialNumber:       res.Info.MeterSerialNumber,
			FirmwareVersion:         res.Info.FirmwareVersion,
			MaximumAmperage:         res.Info.MaximumAmperage,
			BasicAuthUser:           res.Info.BasicAuthUser,
			BasicAuthPasswordSealed: sealedPassword,
		},
		ConfigurationKey:                      keys,
		AutomaticTransactionGenerator:         res.ATG,
		AutomaticTransactionGeneratorStatuses: res.ATGStatuses,
		ConnectorsStatus:                      connStatus,
		EvsesStatus:                           evseStatus,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return ConfigurationDocument{}, fmt.Errorf("template: marshal configuration document: %w", err)
	}
	hash, err := jsonutil.HashBytes(raw)
	if err != nil {
		return ConfigurationDocument{}, fmt.Errorf("template: hash configuration document: %w", err)
	}
	doc.ConfigurationHash = hash
	return doc, nil
}

func snapshotToMap(connectors map[int]*model.Connector) map[string]interface{} {
	out := make(map[string]interface{}, len(connectors))
	for id, c := range connectors {
		out[fmt.Sprintf("%d", id)] = c
	}
	return out
}

// SaveConfiguration marshals doc and writes it to path, matching the template
// file's indentation-free style.
func SaveConfiguration(path string, doc ConfigurationDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("template: marshal configuration document: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("template: write configuration %s: %w", path, err)
	}
	return nil
}
