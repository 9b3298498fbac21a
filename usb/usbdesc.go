// Package usb contains typed USB descriptor records and their wire encoders.
package usb

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// USB descriptor type constants
const (
	DeviceDescType    = 0x01
	ConfigDescType    = 0x02
	StringDescType    = 0x03
	InterfaceDescType = 0x04
	EndpointDescType  = 0x05
)

// Descriptor lengths in bytes (fixed values from USB spec)
const (
	DeviceDescLen    = 18
	ConfigDescLen    = 9
	InterfaceDescLen = 9
	EndpointDescLen  = 7
)

// DeviceDescriptor represents the standard USB device descriptor.
// BLength is computed dynamically; BDescriptorType is implied DeviceDescType.
type DeviceDescriptor struct {
	BcdUSB             uint16 // LE
	BDeviceClass       uint8
	BDeviceSubClass    uint8
	BDeviceProtocol    uint8
	BMaxPacketSize0    uint8
	IDVendor           uint16 // LE
	IDProduct          uint16 // LE
	BcdDevice          uint16 // LE
	IManufacturer      uint8
	IProduct           uint8
	ISerialNumber      uint8
	BNumConfigurations uint8
	Speed              Speed // not part of the wire format
}

// Bytes returns the binary representation of the DeviceDescriptor with BLength auto-filled.
func (d DeviceDescriptor) Bytes() []byte {
	var b bytes.Buffer
	b.WriteByte(DeviceDescLen)
	b.WriteByte(DeviceDescType)
	_ = binary.Write(&b, binary.LittleEndian, d.BcdUSB)
	b.WriteByte(d.BDeviceClass)
	b.WriteByte(d.BDeviceSubClass)
	b.WriteByte(d.BDeviceProtocol)
	b.WriteByte(d.BMaxPacketSize0)
	_ = binary.Write(&b, binary.LittleEndian, d.IDVendor)
	_ = binary.Write(&b, binary.LittleEndian, d.IDProduct)
	_ = binary.Write(&b, binary.LittleEndian, d.BcdDevice)
	b.WriteByte(d.IManufacturer)
	b.WriteByte(d.IProduct)
	b.WriteByte(d.ISerialNumber)
	b.WriteByte(d.BNumConfigurations)
	return b.Bytes()
}

// ConfigDescriptor represents the USB configuration descriptor header (9 bytes).
type ConfigDescriptor struct {
	WTotalLength        uint16 // LE, patched by the owning device on build
	BNumInterfaces      uint8
	BConfigurationValue uint8
	IConfiguration      uint8
	BMAttributes        uint8
	BMaxPower           uint8 // 2 mA units
}

func (h ConfigDescriptor) Write(b *bytes.Buffer) {
	b.WriteByte(ConfigDescLen)
	b.WriteByte(ConfigDescType)
	_ = binary.Write(b, binary.LittleEndian, h.WTotalLength)
	b.WriteByte(h.BNumInterfaces)
	b.WriteByte(h.BConfigurationValue)
	b.WriteByte(h.IConfiguration)
	b.WriteByte(h.BMAttributes)
	b.WriteByte(h.BMaxPower)
}

// SelfPowered reports whether the self-powered attribute bit is set.
func (h ConfigDescriptor) SelfPowered() bool { return h.BMAttributes&ConfigAttrSelfPowered != 0 }

// RemoteWakeup reports whether the remote-wakeup attribute bit is set.
func (h ConfigDescriptor) RemoteWakeup() bool { return h.BMAttributes&ConfigAttrRemoteWakeup != 0 }

// MaxPowerMilliamps returns the maximum bus power draw in mA.
func (h ConfigDescriptor) MaxPowerMilliamps() int { return int(h.BMaxPower) * 2 }

// InterfaceDescriptor (9 bytes) for each interface altsetting.
type InterfaceDescriptor struct {
	BInterfaceNumber   uint8
	BAlternateSetting  uint8
	BNumEndpoints      uint8
	BInterfaceClass    uint8
	BInterfaceSubClass uint8
	BInterfaceProtocol uint8
	IInterface         uint8
}

func (i InterfaceDescriptor) Write(b *bytes.Buffer) {
	b.WriteByte(InterfaceDescLen)
	b.WriteByte(InterfaceDescType)
	b.WriteByte(i.BInterfaceNumber)
	b.WriteByte(i.BAlternateSetting)
	b.WriteByte(i.BNumEndpoints)
	b.WriteByte(i.BInterfaceClass)
	b.WriteByte(i.BInterfaceSubClass)
	b.WriteByte(i.BInterfaceProtocol)
	b.WriteByte(i.IInterface)
}

// EndpointDescriptor (7 bytes) for each endpoint.
//
// IEndpoint is a string reference kept for the backend; the standard endpoint
// descriptor has no string field, so it is not written on the wire.
type EndpointDescriptor struct {
	BEndpointAddress uint8
	BMAttributes     uint8
	WMaxPacketSize   uint16 // LE
	BInterval        uint8
	IEndpoint        uint8
}

func (e EndpointDescriptor) Write(b *bytes.Buffer) {
	b.WriteByte(EndpointDescLen)
	b.WriteByte(EndpointDescType)
	b.WriteByte(e.BEndpointAddress)
	b.WriteByte(e.BMAttributes)
	_ = binary.Write(b, binary.LittleEndian, e.WMaxPacketSize)
	b.WriteByte(e.BInterval)
}

// Number returns the 4-bit endpoint number.
func (e EndpointDescriptor) Number() uint8 { return e.BEndpointAddress & EndpointNumberMask }

// In reports whether this is a device-to-host endpoint.
func (e EndpointDescriptor) In() bool { return e.BEndpointAddress&EndpointDirMask == EndpointDirIn }

// TransferType returns the transfer type encoded in bmAttributes.
func (e EndpointDescriptor) TransferType() TransferType {
	return TransferType(e.BMAttributes & transferTypeMask)
}

// MaxStringUnits is the longest string, in UTF-16 code units, that fits a
// string descriptor (bLength is a single byte).
const MaxStringUnits = 126

// EncodeStringDescriptor converts a UTF-8 string to a USB string descriptor byte array.
// Strings longer than MaxStringUnits are truncated.
// The resulting descriptor has the format:
//
//	Byte 0: bLength (total descriptor length)
//	Byte 1: bDescriptorType (0x03 for string)
//	Bytes 2+: UTF-16LE encoded string
func EncodeStringDescriptor(s string) []byte {
	units := utf16.Encode([]rune(s))
	if len(units) > MaxStringUnits {
		units = units[:MaxStringUnits]
		// don't leave half a surrogate pair behind
		if utf16.IsSurrogate(rune(units[len(units)-1])) && units[len(units)-1] < 0xDC00 {
			units = units[:len(units)-1]
		}
	}
	buf := make([]byte, 2+len(units)*2)
	buf[0] = uint8(len(buf)) // bLength
	buf[1] = StringDescType
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[2+i*2:], u)
	}
	return buf
}
