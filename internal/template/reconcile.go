package template

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"stationsim/internal/cache"
	"stationsim/internal/configstore"
	"stationsim/internal/electric"
	"stationsim/internal/jsonutil"
	"stationsim/internal/model"
)

// defaultOcppConfigurationKeys is the realistic, OCPP-1.6-flavored key
// vocabulary a freshly reconciled station carries before any template or
// persisted override is applied (grounded on
// other_examples/AhmedAbouelkher-ocpp-emulator-go__constants.go's
// supportedConfigurationKeys list).
var defaultOcppConfigurationKeys = []configstore.Key{
	{Name: "HeartbeatInterval", Value: "60", Visible: true},
	{Name: "MeterValueSampleInterval", Value: "60", Visible: true},
	{Name: "ClockAlignedDataInterval", Value: "0", Visible: true},
	{Name: "ConnectionTimeOut", Value: "30", Visible: true},
	{Name: "GetConfigurationMaxKeys", Value: "100", Readonly: true, Visible: true},
	{Name: "NumberOfConnectors", Visible: true, Readonly: true},
	{Name: "SupportedFeatureProfiles", Value: "Core,SmartCharging,RemoteTrigger,Reservation", Readonly: true, Visible: true},
	{Name: "ChargeProfileMaxStackLevel", Value: "8", Readonly: true, Visible: true},
	{Name: "ChargingScheduleAllowedChargingRateUnit", Value: "Current,Power", Readonly: true, Visible: true},
	{Name: "MaxChargingProfilesInstalled", Value: "10", Readonly: true, Visible: true},
	{Name: "AuthorizeRemoteTxRequests", Value: "false", Visible: true},
	{Name: "StopTransactionOnInvalidId", Value: "true", Visible: true},
	{Name: "TransactionMessageAttempts", Value: "3", Visible: true},
	{Name: "TransactionMessageRetryInterval", Value: "60", Visible: true},
}

// Result is everything the reconciler produces for one simulated station.
type Result struct {
	Info            StationInfo
	Model           *model.Model
	ConfigStore     *configstore.Store
	ATG             ATGTemplate
	ATGStatuses     map[string]interface{}
	ConnectorsStatus map[string]interface{}
	EvsesStatus      map[string]interface{}

	// FirmwareAlreadyInstalled reports whether Info.FirmwareVersion was
	// carried forward from a previously persisted configuration document
	// rather than taken fresh from the template: BumpFirmwareVersion only
	// ever runs once and its result is what gets persisted, so a restart
	// that restores it has nothing left to install.
	FirmwareAlreadyInstalled bool
}

// Reconcile implements spec.md §4.1's full algorithm: merge the template
// document with any previously persisted configuration document, derive
// serial numbers and a station id, validate the connector/EVSE container
// choice, seed the configuration store, and build the initial Model. logger
// may be nil; a nil logger discards the warnings a mismatched firmware
// version or similar best-effort condition emits.
func Reconcile(index int, templateFile string, rawTemplate []byte, previous *ConfigurationDocument, logger *zap.Logger) (Result, error) {
	doc, templateHash, err := ParseDocument(templateFile, rawTemplate)
	if err != nil {
		return Result{}, err
	}
	return reconcileDocument(index, templateFile, templateHash, doc, previous, logger)
}

// ReconcileCached behaves like Reconcile but consults docCache (process-wide,
// optionally Redis-backed) before re-unmarshaling rawTemplate, keyed by its
// content hash — every station actor launched off the same template file
// shares one parse instead of paying it N times (spec.md §9's "process-wide
// parsed-document LRU"). docCache may be nil, in which case this is exactly
// Reconcile.
func ReconcileCached(ctx context.Context, docCache *cache.DocumentCache, index int, templateFile string, rawTemplate []byte, previous *ConfigurationDocument, logger *zap.Logger) (Result, error) {
	if docCache == nil {
		return Reconcile(index, templateFile, rawTemplate, previous, logger)
	}

	templateHash, err := jsonutil.HashBytes(rawTemplate)
	if err != nil {
		return Result{}, fmt.Errorf("template: hash %s: %w", templateFile, err)
	}

	var doc Document
	if !docCache.Get(ctx, templateHash, &doc) {
		doc, _, err = ParseDocument(templateFile, rawTemplate)
		if err != nil {
			return Result{}, err
		}
		docCache.Put(ctx, templateHash, doc)
	}

	return reconcileDocument(index, templateFile, templateHash, doc, previous, logger)
}

// ParseDocument unmarshals and migrates a raw template document, returning
// it alongside the content hash Reconcile/ReconcileCached key persistence
// and caching on.
func ParseDocument(templateFile string, rawTemplate []byte) (Document, string, error) {
	var doc Document
	if err := json.Unmarshal(rawTemplate, &doc); err != nil {
		return Document{}, "", fmt.Errorf("template: parse %s: %w", templateFile, err)
	}
	migrateDeprecatedKeys(&doc)

	templateHash, err := jsonutil.HashBytes(rawTemplate)
	if err != nil {
		return Document{}, "", fmt.Errorf("template: hash %s: %w", templateFile, err)
	}
	return doc, templateHash, nil
}

func reconcileDocument(index int, templateFile, templateHash string, doc Document, previous *ConfigurationDocument, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for oldKey, present := range map[string]bool{
		"supervisionUrl":             doc.SupervisionUrl != "",
		"authorizationFile":          doc.AuthorizationFile != "",
		"payloadSchemaValidation":    doc.PayloadSchemaValidation != nil,
		"mustAuthorizeAtRemoteStart": doc.MustAuthorizeAtRemoteStart != nil,
	} {
		if present {
			logger.Warn("template: deprecated template key migrated to its replacement",
				zap.String("templateFile", templateFile), zap.String("key", oldKey))
		}
	}

	if err := model.ValidateContainers(len(doc.Connectors) > 0, len(doc.Evses) > 0); err != nil {
		return Result{}, fmt.Errorf("template: %s: %w", templateFile, err)
	}

	info, err := buildStationInfo(index, templateFile, templateHash, doc, previous, logger)
	if err != nil {
		return Result{}, err
	}

	m, connStatus, evseStatus, err := buildModel(doc, info, previous)
	if err != nil {
		return Result{}, err
	}

	store := buildConfigStore(doc, info, previous)

	atg, atgStatuses := doc.AutomaticTransactionGenerator, map[string]interface{}(nil)
	if previous != nil && info.AutomaticTransactionGeneratorPersistentConfiguration {
		if previous.AutomaticTransactionGenerator != nil {
			atg = previous.AutomaticTransactionGenerator
		}
		atgStatuses = previous.AutomaticTransactionGeneratorStatuses
	}

	firmwareAlreadyInstalled := previous != nil && previous.StationInfo != nil &&
		previous.StationInfo.FirmwareVersion != "" && info.StationInfoPersistentConfiguration

	return Result{
		Info:                     info,
		Model:                    m,
		ConfigStore:              store,
		ATG:                      atg,
		ATGStatuses:              atgStatuses,
		ConnectorsStatus:         connStatus,
		EvsesStatus:              evseStatus,
		FirmwareAlreadyInstalled: firmwareAlreadyInstalled,
	}, nil
}

func stationName(doc Document, index int) string {
	if doc.FixedName != "" {
		return doc.FixedName
	}
	base := doc.BaseName
	if base == "" {
		base = "station"
	}
	suffix := doc.NameSuffix
	if suffix == "" {
		suffix = "-"
	}
	return fmt.Sprintf("%s%s%d", base, suffix, index+1)
}

func buildStationInfo(index int, templateFile, templateHash string, doc Document, previous *ConfigurationDocument, logger *zap.Logger) (StationInfo, error) {
	random := doc.RandomSerialNumber != nil && *doc.RandomSerialNumber

	chargeBoxSerial, err := generateSerial(doc.ChargeBoxSerialNumberPrefix, random)
	if err != nil {
		return StationInfo{}, err
	}
	chargePointSerial, err := generateSerial(doc.ChargePointSerialNumberPrefix, random)
	if err != nil {
		return StationInfo{}, err
	}
	meterSerial, err := generateSerial(doc.MeterSerialNumberPrefix, random)
	if err != nil {
		return StationInfo{}, err
	}

	firmwareVersion := doc.FirmwareVersion
	if !validateFirmwareVersion(firmwareVersion, doc.FirmwareVersionPattern) {
		logger.Warn("template: firmwareVersion does not match firmwareVersionPattern, continuing with declared version",
			zap.String("templateFile", templateFile),
			zap.String("firmwareVersion", firmwareVersion),
			zap.String("firmwareVersionPattern", doc.FirmwareVersionPattern))
	}

	currentType := electric.CurrentTypeAC
	if doc.CurrentOutType == string(electric.CurrentTypeDC) {
		currentType = electric.CurrentTypeDC
	}
	voltage := doc.VoltageOut
	if voltage == 0 {
		voltage = 230
	}
	phases := doc.NumberOfPhases
	if phases == 0 {
		phases = 1
	}

	maxAmperage := doc.MaximumAmperage
	if maxAmperage == 0 && doc.Power > 0 {
		maxAmperage = electric.WattsToAmperage(currentType, doc.Power, voltage, phases)
	}
	maxPower := doc.Power
	if maxPower == 0 && maxAmperage > 0 {
		maxPower = electric.AmperageToWatts(currentType, maxAmperage, voltage, phases)
	}

	info := StationInfo{
		Index:                   index,
		TemplateFile:            templateFile,
		TemplateHash:            templateHash,
		StationID:               stationName(doc, index),
		ChargePointVendor:       doc.ChargePointVendor,
		ChargePointModel:        doc.ChargePointModel,
		ChargeBoxSerialNumber:   chargeBoxSerial,
		ChargePointSerialNumber: chargePointSerial,
		MeterSerialNumber:       meterSerial,
		MeterType:               doc.MeterType,
		FirmwareVersion:         firmwareVersion,
		FirmwareVersionPattern:  doc.FirmwareVersionPattern,
		FirmwareUpgrade:         doc.FirmwareUpgrade,
		OcppVersion:             doc.OcppVersion,
		CurrentOutType:          currentType,
		VoltageOut:              voltage,
		NumberOfPhases:          phases,
		MaximumPower:            maxPower,
		MaximumAmperage:         maxAmperage,
		NumberOfConnectors:      doc.NumberOfConnectors,
		RandomConnectors:        doc.RandomConnectors,
		UseConnectorId0:         doc.UseConnectorId0,
		SupervisionUrls:         doc.SupervisionUrls,
		SupervisionUrlOcppConfiguration: doc.SupervisionUrlOcppConfiguration,
		SupervisionUrlOcppKey:   doc.SupervisionUrlOcppKey,
		AmperageLimitationOcppKey: doc.AmperageLimitationOcppKey,
		AutoRegister:            doc.AutoRegister,
		RegistrationMaxRetries:  doc.RegistrationMaxRetries,
		AutoReconnectMaxRetries: doc.AutoReconnectMaxRetries,
		ReconnectExponentialDelay: doc.ReconnectExponentialDelay,
		StopOnConnectionFailure: doc.StopOnConnectionFailure,
		ConnectionTimeOut:       secondsToDuration(doc.ConnectionTimeOut),
		ResetTime:               secondsToDuration(doc.ResetTime),
		BeginEndMeterValues:     doc.BeginEndMeterValues,
		OcppStrictCompliance:    doc.OcppStrictCompliance,
		OutOfOrderEndMeterValues: doc.OutOfOrderEndMeterValues,
		MeteringPerTransaction:  doc.MeteringPerTransaction,
		StationInfoPersistentConfiguration: doc.StationInfoPersistentConfiguration,
		OcppPersistentConfiguration:        doc.OcppPersistentConfiguration,
		AutomaticTransactionGeneratorPersistentConfiguration: doc.AutomaticTransactionGeneratorPersistentConfiguration,
		EnableStatistics:          doc.EnableStatistics,
		StopTransactionsOnStopped: doc.StopTransactionsOnStopped,
		PowerSharedByConnectors:   doc.PowerSharedByConnectors,
		IdTagsFile:                doc.IdTagsFile,
		RemoteAuthorization:       doc.RemoteAuthorization,
		BasicAuthUser:             doc.BasicAuthUser,
		BasicAuthPassword:         doc.BasicAuthPassword,
		RandomSerialNumber:        random,
	}

	if previous != nil && previous.StationInfo != nil && info.StationInfoPersistentConfiguration {
		p := previous.StationInfo
		info.StationID = p.StationID
		if p.ChargeBoxSerialNumber != "" {
			info.ChargeBoxSerialNumber = p.ChargeBoxSerialNumber
		}
		if p.ChargePointSerialNumber != "" {
			info.ChargePointSerialNumber = p.ChargePointSerialNumber
		}
		if p.MeterSerialNumber != "" {
			info.MeterSerialNumber = p.MeterSerialNumber
		}
		if p.FirmwareVersion != "" {
			info.FirmwareVersion = p.FirmwareVersion
		}
		if p.MaximumAmperage != 0 {
			info.MaximumAmperage = p.MaximumAmperage
		}
		if p.BasicAuthUser != "" {
			info.BasicAuthUser = p.BasicAuthUser
		}
	}

	return info, nil
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func connectorStatusFromBoot(bootStatus string) *model.ConnectorStatus {
	if bootStatus == "" {
		return nil
	}
	s := model.ConnectorStatus(bootStatus)
	return &s
}

func buildModel(doc Document, info StationInfo, previous *ConfigurationDocument) (*model.Model, map[string]interface{}, map[string]interface{}, error) {
	var m *model.Model
	var err error

	if len(doc.Evses) > 0 {
		evseConnectorIDs := make(map[int][]int, len(doc.Evses))
		for evseIDStr, evse := range doc.Evses {
			evseID, convErr := strconv.Atoi(evseIDStr)
			if convErr != nil {
				return nil, nil, nil, fmt.Errorf("template: evse id %q is not numeric: %w", evseIDStr, convErr)
			}
			ids := make([]int, 0, len(evse.Connectors))
			for connIDStr := range evse.Connectors {
				connID, convErr := strconv.Atoi(connIDStr)
				if convErr != nil {
					return nil, nil, nil, fmt.Errorf("template: connector id %q is not numeric: %w", connIDStr, convErr)
				}
				ids = append(ids, connID)
			}
			sort.Ints(ids)
			evseConnectorIDs[evseID] = ids
		}
		m, err = model.NewEVSEModel(evseConnectorIDs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("template: build evse model: %w", err)
		}
		for evseIDStr, evse := range doc.Evses {
			evseID, _ := strconv.Atoi(evseIDStr)
			for connIDStr, ct := range evse.Connectors {
				connID, _ := strconv.Atoi(connIDStr)
				bs := connectorStatusFromBoot(ct.BootStatus)
				_ = evseID
				if bs != nil {
					_ = m.Mutate(connID, func(c *model.Connector) { c.BootStatus = bs })
				}
			}
		}
	} else {
		ids := make([]int, 0, len(doc.Connectors)+1)
		if info.UseConnectorId0 {
			ids = append(ids, 0)
		}
		for idStr := range doc.Connectors {
			id, convErr := strconv.Atoi(idStr)
			if convErr != nil {
				return nil, nil, nil, fmt.Errorf("template: connector id %q is not numeric: %w", idStr, convErr)
			}
			ids = append(ids, id)
		}
		sort.Ints(ids)
		m, err = model.NewConnectorModel(ids)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("template: build connector model: %w", err)
		}
		for idStr, ct := range doc.Connectors {
			id, _ := strconv.Atoi(idStr)
			if bs := connectorStatusFromBoot(ct.BootStatus); bs != nil {
				_ = m.Mutate(id, func(c *model.Connector) { c.BootStatus = bs })
			}
		}
	}

	var connStatus, evseStatus map[string]interface{}
	if previous != nil && info.StationInfoPersistentConfiguration {
		connStatus = previous.ConnectorsStatus
		evseStatus = previous.EvsesStatus
	}

	return m, connStatus, evseStatus, nil
}

func buildConfigStore(doc Document, info StationInfo, previous *ConfigurationDocument) *configstore.Store {
	store := configstore.New()
	for _, k := range defaultOcppConfigurationKeys {
		store.Add(k, false)
	}
	store.Add(configstore.Key{Name: "NumberOfConnectors", Value: strconv.Itoa(info.NumberOfConnectors), Readonly: true, Visible: true}, true)

	for _, k := range doc.Configuration.ConfigurationKey {
		visible := true
		if k.Visible != nil {
			visible = *k.Visible
		}
		store.Add(configstore.Key{Name: k.Key, Value: k.Value, Readonly: k.Readonly, Visible: visible}, true)
	}

	if previous != nil && info.OcppPersistentConfiguration {
		for _, k := range previous.ConfigurationKey {
			store.Add(k, true)
		}
	}

	return store
}
