// Package apitypes holds the JSON payloads of the usbtopo query API, shared
// by the server handlers, the client and the dump command.
package apitypes

// ApiError is the payload of every failed request.
type ApiError struct {
	Error string `json:"error"`
}

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

// Device summarizes one registered device.
type Device struct {
	Bus            uint8  `json:"bus" yaml:"bus"`
	Address        uint8  `json:"address" yaml:"address"`
	Vid            string `json:"vid" yaml:"vid"`
	Pid            string `json:"pid" yaml:"pid"`
	Speed          string `json:"speed" yaml:"speed"`
	NoAccess       bool   `json:"noAccess,omitempty" yaml:"noaccess,omitempty"`
	Configurations int    `json:"configurations" yaml:"configurations"`
}

type DevicesListResponse struct {
	Devices     []Device `json:"devices"`
	Fingerprint string   `json:"fingerprint"`
}

type Endpoint struct {
	Address       string `json:"address" yaml:"address"`
	Direction     string `json:"direction" yaml:"direction"`
	Type          string `json:"type" yaml:"type"`
	MaxPacketSize uint16 `json:"maxPacketSize" yaml:"maxpacketsize"`
	Interval      uint8  `json:"interval" yaml:"interval"`
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	Raw           string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

type Interface struct {
	Number    uint8      `json:"number" yaml:"number"`
	Class     uint8      `json:"class" yaml:"class"`
	SubClass  uint8      `json:"subClass" yaml:"subclass"`
	Protocol  uint8      `json:"protocol" yaml:"protocol"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
	Raw       string     `json:"raw,omitempty" yaml:"raw,omitempty"`
}

type Configuration struct {
	Value        uint8       `json:"value" yaml:"value"`
	Attributes   string      `json:"attributes" yaml:"attributes"`
	SelfPowered  bool        `json:"selfPowered" yaml:"selfpowered"`
	RemoteWakeup bool        `json:"remoteWakeup" yaml:"remotewakeup"`
	MaxPowerMA   int         `json:"maxPowerMa" yaml:"maxpower"`
	TotalLength  uint16      `json:"totalLength" yaml:"totallength"`
	Name         string      `json:"name,omitempty" yaml:"name,omitempty"`
	Interfaces   []Interface `json:"interfaces" yaml:"interfaces"`
	Raw          string      `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// DeviceDetail is the fully resolved descriptor tree of one device.
type DeviceDetail struct {
	Bus            uint8            `json:"bus" yaml:"bus"`
	Address        uint8            `json:"address" yaml:"address"`
	Speed          string           `json:"speed" yaml:"speed"`
	NoAccess       bool             `json:"noAccess" yaml:"noaccess"`
	USB            string           `json:"usb" yaml:"usb"`
	Class          uint8            `json:"class" yaml:"class"`
	SubClass       uint8            `json:"subClass" yaml:"subclass"`
	Protocol       uint8            `json:"protocol" yaml:"protocol"`
	MaxPacketSize0 uint8            `json:"maxPacketSize0" yaml:"maxpacketsize0"`
	Vid            string           `json:"vid" yaml:"vid"`
	Pid            string           `json:"pid" yaml:"pid"`
	Version        string           `json:"version" yaml:"version"`
	Manufacturer   string           `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Product        string           `json:"product,omitempty" yaml:"product,omitempty"`
	SerialNumber   string           `json:"serialNumber,omitempty" yaml:"serialnumber,omitempty"`
	Strings        map[uint8]string `json:"strings,omitempty" yaml:"strings,omitempty"`
	Properties     map[string]any   `json:"properties,omitempty" yaml:"properties,omitempty"`
	Configurations []Configuration  `json:"configurations" yaml:"configurations"`
	Raw            string           `json:"raw,omitempty" yaml:"raw,omitempty"`
}

type TopologyReloadResponse struct {
	Devices     int    `json:"devices"`
	Fingerprint string `json:"fingerprint"`
}
