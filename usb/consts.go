package usb

import (
	"strconv"
	"strings"
)

// Speed is the negotiated bus speed of a device.
type Speed uint32

const (
	SpeedUnknown Speed = iota
	SpeedLow
	SpeedFull
	SpeedHigh
	SpeedSuper
	SpeedSuperPlus
)

var speedDescription = map[Speed]string{
	SpeedUnknown:   "unknown",
	SpeedLow:       "low",
	SpeedFull:      "full",
	SpeedHigh:      "high",
	SpeedSuper:     "super",
	SpeedSuperPlus: "superplus",
}

func (s Speed) String() string {
	if d, ok := speedDescription[s]; ok {
		return d
	}
	return strconv.Itoa(int(s))
}

// ParseSpeed resolves a speed name (case-insensitive).
// "unknown" is not accepted as a declared speed.
func ParseSpeed(name string) (Speed, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, d := range speedDescription {
		if s != SpeedUnknown && d == name {
			return s, true
		}
	}
	return SpeedUnknown, false
}

// SpeedForBcdUSB returns the speed implied by a bcdUSB release number.
func SpeedForBcdUSB(bcd uint16) Speed {
	switch {
	case bcd >= 0x0300:
		return SpeedSuper
	case bcd >= 0x0200:
		return SpeedHigh
	default:
		return SpeedFull
	}
}

// Endpoint address layout.
const (
	EndpointNumberMask = 0x0F
	EndpointDirMask    = 0x80
	EndpointDirIn      = 0x80
	EndpointDirOut     = 0x00
)

// MaxEndpointNumber is the highest non-control endpoint number.
const MaxEndpointNumber = 15

var directions = map[string]uint8{
	"in":  EndpointDirIn,
	"out": EndpointDirOut,
}

// ParseDirection resolves an endpoint direction name to its address bit.
func ParseDirection(name string) (uint8, bool) {
	d, ok := directions[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// TransferType is the endpoint transfer type (bmAttributes bits 1..0).
type TransferType uint8

const (
	TransferTypeControl     TransferType = 0
	TransferTypeIsochronous TransferType = 1
	TransferTypeBulk        TransferType = 2
	TransferTypeInterrupt   TransferType = 3
)

const transferTypeMask = 0x03

var transferTypeDescription = map[TransferType]string{
	TransferTypeControl:     "control",
	TransferTypeIsochronous: "isochronous",
	TransferTypeBulk:        "bulk",
	TransferTypeInterrupt:   "interrupt",
}

func (t TransferType) String() string {
	if d, ok := transferTypeDescription[t]; ok {
		return d
	}
	return strconv.Itoa(int(t))
}

// ParseTransferType resolves a transfer type name (case-insensitive).
func ParseTransferType(name string) (TransferType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, d := range transferTypeDescription {
		if d == name {
			return t, true
		}
	}
	return 0, false
}

// DefaultMaxPacketSize returns the packet size used when an endpoint leaves
// wMaxPacketSize unset.
func DefaultMaxPacketSize(t TransferType, s Speed) uint16 {
	if t != TransferTypeBulk {
		return 64
	}
	switch s {
	case SpeedHigh:
		return 512
	case SpeedSuper, SpeedSuperPlus:
		return 1024
	default:
		return 64
	}
}

// Configuration bmAttributes bits.
const (
	ConfigAttrReserved     = 1 << 7 // must be set
	ConfigAttrSelfPowered  = 1 << 6
	ConfigAttrRemoteWakeup = 1 << 5
)

var configFeatures = map[string]uint8{
	"selfpowered": ConfigAttrSelfPowered,
	"wakeup":      ConfigAttrRemoteWakeup,
}

// ParseConfigFeature resolves a configuration feature name to its attribute bit.
func ParseConfigFeature(name string) (uint8, bool) {
	f, ok := configFeatures[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}
