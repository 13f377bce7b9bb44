package entities

// UnknownHeader is a header the engine did not recognise.
type UnknownHeader struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// HeaderSummary is a host-side snapshot of every scalar header projection.
type HeaderSummary struct {
	FirmwareRevision string          `json:"firmwareRevision" yaml:"firmwareRevision"`
	FirmwareKind     FirmwareKind    `json:"firmwareKind" yaml:"firmwareKind"`
	FirmwareVersion  FirmwareVersion `json:"firmwareVersion" yaml:"firmwareVersion"`
	FirmwareDate     FirmwareDate    `json:"firmwareDate" yaml:"firmwareDate"`
	BoardInfo        *string         `json:"boardInfo,omitempty" yaml:"boardInfo,omitempty"`
	CraftName        *string         `json:"craftName,omitempty" yaml:"craftName,omitempty"`
	DebugMode        string          `json:"debugMode" yaml:"debugMode"`
	PwmProtocol      string          `json:"pwmProtocol" yaml:"pwmProtocol"`
	DisabledFields   []string        `json:"disabledFields" yaml:"disabledFields"`
	Features         []string        `json:"features" yaml:"features"`
	Unknown          []UnknownHeader `json:"unknown,omitempty" yaml:"unknown,omitempty"`
	MainFrameDef     FrameDef        `json:"mainFrameDef" yaml:"mainFrameDef"`
	SlowFrameDef     FrameDef        `json:"slowFrameDef" yaml:"slowFrameDef"`
	GpsFrameDef      FrameDef        `json:"gpsFrameDef" yaml:"gpsFrameDef"`
}
