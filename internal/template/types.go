// Package template implements the Template & Configuration Reconciler
// (spec.md §4.1/D): it loads a station template document, merges it with any
// previously persisted configuration document, and produces a fully
// populated StationInfo plus the initial connector/EVSE maps. There is no
// direct teacher equivalent (the teacher is CS-side and has no station
// template); the Load/defaults/validate shape follows
// backend/services/ocpp-server/internal/config/config.go, and the realistic
// configuration-key vocabulary is grounded on
// other_examples/AhmedAbouelkher-ocpp-emulator-go__constants.go.
package template

import (
	"time"

	"stationsim/internal/configstore"
	"stationsim/internal/electric"
)

// FirmwareUpgrade describes an in-place firmware version bump applied when
// firmwareStatus transitions through Installing (spec.md §4.1 step 6).
type FirmwareUpgrade struct {
	VersionUpgrade struct {
		Step         int `json:"step"`
		PatternGroup int `json:"patternGroup"`
	} `json:"versionUpgrade"`
	Reset bool `json:"reset"`
}

// ConnectorTemplate is one entry of the template's Connectors map.
type ConnectorTemplate struct {
	BootStatus string `json:"bootStatus,omitempty"`
}

// EVSETemplate is one entry of the template's Evses map.
type EVSETemplate struct {
	Connectors map[string]ConnectorTemplate `json:"Connectors"`
}

// ATGTemplate is the subset of AutomaticTransactionGenerator configuration
// the core treats as an opaque, pass-through document (spec.md §4.7: ATG
// itself is an external collaborator).
type ATGTemplate map[string]interface{}

// ConfigurationKeyTemplate is one entry of Configuration.configurationKey[].
type ConfigurationKeyTemplate struct {
	Key      string `json:"key"`
	Readonly bool   `json:"readonly"`
	Value    string `json:"value"`
	Visible  *bool  `json:"visible,omitempty"`
}

// Document is the station template file (spec.md §6).
type Document struct {
	BaseName    string `json:"baseName,omitempty"`
	NameSuffix  string `json:"nameSuffix,omitempty"`
	FixedName   string `json:"fixedName,omitempty"`

	ChargePointVendor         string `json:"chargePointVendor"`
	ChargePointModel          string `json:"chargePointModel"`
	ChargeBoxSerialNumberPrefix  string `json:"chargeBoxSerialNumberPrefix,omitempty"`
	ChargePointSerialNumberPrefix string `json:"chargePointSerialNumberPrefix,omitempty"`
	MeterSerialNumberPrefix   string `json:"meterSerialNumberPrefix,omitempty"`
	MeterType                 string `json:"meterType,omitempty"`

	FirmwareVersion        string           `json:"firmwareVersion,omitempty"`
	FirmwareVersionPattern string           `json:"firmwareVersionPattern,omitempty"`
	FirmwareUpgrade        *FirmwareUpgrade `json:"firmwareUpgrade,omitempty"`

	OcppVersion     string `json:"ocppVersion"`
	CurrentOutType  string `json:"currentOutType,omitempty"`
	VoltageOut      float64 `json:"voltageOut,omitempty"`
	NumberOfPhases  int     `json:"numberOfPhases,omitempty"`
	Power           float64 `json:"power,omitempty"`
	PowerUnit       string  `json:"powerUnit,omitempty"`
	MaximumAmperage float64 `json:"maximumAmperage,omitempty"`

	NumberOfConnectors int  `json:"numberOfConnectors,omitempty"`
	RandomConnectors   bool `json:"randomConnectors,omitempty"`
	UseConnectorId0    bool `json:"useConnectorId0,omitempty"`

	Connectors map[string]ConnectorTemplate `json:"Connectors,omitempty"`
	Evses      map[string]EVSETemplate      `json:"Evses,omitempty"`

	Configuration struct {
		ConfigurationKey []ConfigurationKeyTemplate `json:"configurationKey,omitempty"`
	} `json:"Configuration,omitempty"`

	AutomaticTransactionGenerator ATGTemplate `json:"AutomaticTransactionGenerator,omitempty"`

	SupervisionUrls                []string `json:"supervisionUrls,omitempty"`
	SupervisionUrlOcppConfiguration bool    `json:"supervisionUrlOcppConfiguration,omitempty"`
	SupervisionUrlOcppKey            string  `json:"supervisionUrlOcppKey,omitempty"`
	AmperageLimitationOcppKey        string  `json:"amperageLimitationOcppKey,omitempty"`

	AutoRegister        bool `json:"autoRegister,omitempty"`
	RegistrationMaxRetries int `json:"registrationMaxRetries,omitempty"`
	AutoReconnectMaxRetries int `json:"autoReconnectMaxRetries,omitempty"`
	ReconnectExponentialDelay bool `json:"reconnectExponentialDelay,omitempty"`
	StopOnConnectionFailure bool `json:"stopOnConnectionFailure,omitempty"`
	ConnectionTimeOut   int  `json:"connectionTimeOut,omitempty"`
	ResetTime int `json:"resetTime,omitempty"`

	BeginEndMeterValues   bool `json:"beginEndMeterValues,omitempty"`
	OcppStrictCompliance  bool `json:"ocppStrictCompliance,omitempty"`
	OutOfOrderEndMeterValues bool `json:"outOfOrderEndMeterValues,omitempty"`
	MeteringPerTransaction bool `json:"meteringPerTransaction,omitempty"`

	StationInfoPersistentConfiguration bool `json:"stationInfoPersistentConfiguration,omitempty"`
	OcppPersistentConfiguration        bool `json:"ocppPersistentConfiguration,omitempty"`
	AutomaticTransactionGeneratorPersistentConfiguration bool `json:"automaticTransactionGeneratorPersistentConfiguration,omitempty"`

	EnableStatistics           bool `json:"enableStatistics,omitempty"`
	StopTransactionsOnStopped  bool `json:"stopTransactionsOnStopped,omitempty"`
	PowerSharedByConnectors    bool `json:"powerSharedByConnectors,omitempty"`

	IdTagsFile         string `json:"idTagsFile,omitempty"`
	RemoteAuthorization bool  `json:"remoteAuthorization,omitempty"`

	RandomSerialNumber *bool `json:"randomSerialNumber,omitempty"`

	BasicAuthUser     string `json:"basicAuthUser,omitempty"`
	BasicAuthPassword string `json:"basicAuthPassword,omitempty"`

	// Deprecated fields, rewritten by migrateDeprecatedKeys into their
	// replacements (spec.md §4.1 step 8 / §6).
	SupervisionUrl          string `json:"supervisionUrl,omitempty"`
	AuthorizationFile       string `json:"authorizationFile,omitempty"`
	PayloadSchemaValidation *bool  `json:"payloadSchemaValidation,omitempty"`
	MustAuthorizeAtRemoteStart *bool `json:"mustAuthorizeAtRemoteStart,omitempty"`
}

// StationInfo is the fully-populated, post-reconciliation station identity
// and behavior configuration (spec.md §3, §4.1).
type StationInfo struct {
	Index        int
	TemplateFile string
	TemplateHash string
	StationID    string

	ChargePointVendor string
	ChargePointModel  string

	ChargeBoxSerialNumber   string
	ChargePointSerialNumber string
	MeterSerialNumber       string
	MeterType               string

	FirmwareVersion        string
	FirmwareVersionPattern string
	FirmwareUpgrade        *FirmwareUpgrade

	OcppVersion    string
	CurrentOutType electric.CurrentType
	VoltageOut     float64
	NumberOfPhases int
	MaximumPower   float64
	MaximumAmperage float64

	NumberOfConnectors int
	RandomConnectors   bool
	UseConnectorId0    bool

	SupervisionUrls                  []string
	SupervisionUrlOcppConfiguration  bool
	SupervisionUrlOcppKey            string
	AmperageLimitationOcppKey        string

	AutoRegister              bool
	RegistrationMaxRetries    int
	AutoReconnectMaxRetries   int
	ReconnectExponentialDelay bool
	StopOnConnectionFailure   bool
	ConnectionTimeOut         time.Duration
	ResetTime                 time.Duration

	BeginEndMeterValues      bool
	OcppStrictCompliance     bool
	OutOfOrderEndMeterValues bool
	MeteringPerTransaction   bool

	StationInfoPersistentConfiguration                   bool
	OcppPersistentConfiguration                          bool
	AutomaticTransactionGeneratorPersistentConfiguration bool

	EnableStatistics          bool
	StopTransactionsOnStopped bool
	PowerSharedByConnectors   bool

	IdTagsFile          string
	RemoteAuthorization bool

	BasicAuthUser     string
	BasicAuthPassword string // plaintext in memory; sealed at rest, see internal/secret

	RandomSerialNumber bool
}

// PowerDivider returns the divisor used when deriving a per-connector power
// cap from MaximumPower (spec.md §4.5's powerDivider rule).
func (s StationInfo) PowerDivider(numberOfEVSEs, numberOfConnectors, runningTransactions int) int {
	if s.PowerSharedByConnectors {
		if runningTransactions > 0 {
			return runningTransactions
		}
		return 1
	}
	if numberOfEVSEs > 0 {
		return numberOfEVSEs
	}
	if numberOfConnectors > 0 {
		return numberOfConnectors
	}
	return 1
}

// ConfigurationDocument is the persisted configuration file (spec.md §6): a
// content-addressed snapshot of everything the reconciler produced plus
// runtime state worth surviving a restart.
type ConfigurationDocument struct {
	ConfigurationHash string `json:"configurationHash"`

	StationInfo *PersistedStationInfo `json:"stationInfo,omitempty"`

	ConfigurationKey []configstore.Key `json:"configurationKey,omitempty"`

	AutomaticTransactionGenerator        ATGTemplate            `json:"automaticTransactionGenerator,omitempty"`
	AutomaticTransactionGeneratorStatuses map[string]interface{} `json:"automaticTransactionGeneratorStatuses,omitempty"`

	ConnectorsStatus map[string]interface{} `json:"connectorsStatus,omitempty"`
	EvsesStatus      map[string]interface{} `json:"evsesStatus,omitempty"`
}

// PersistedStationInfo is the subset of StationInfo that round-trips through
// the configuration file; BasicAuthPassword is stored sealed (see
// internal/secret) rather than as the StationInfo's plaintext field.
type PersistedStationInfo struct {
	StationID               string  `json:"stationId"`
	TemplateHash             string `json:"templateHash"`
	ChargePointVendor        string  `json:"chargePointVendor"`
	ChargePointModel         string  `json:"chargePointModel"`
	ChargeBoxSerialNumber    string  `json:"chargeBoxSerialNumber,omitempty"`
	ChargePointSerialNumber  string  `json:"chargePointSerialNumber,omitempty"`
	MeterSerialNumber        string  `json:"meterSerialNumber,omitempty"`
	FirmwareVersion          string  `json:"firmwareVersion,omitempty"`
	MaximumAmperage          float64 `json:"maximumAmperage,omitempty"`
	BasicAuthUser            string  `json:"basicAuthUser,omitempty"`
	BasicAuthPasswordSealed  string  `json:"basicAuthPasswordSealed,omitempty"`
}
