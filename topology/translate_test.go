package topology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/usbtopo/usb"
)

func parseOne(t *testing.T, src string) Value {
	t.Helper()
	docs, err := ParseYAML(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

func TestTranslateDeviceDescriptor(t *testing.T) {
	strs := usb.NewStringTable()
	d, err := translateDeviceDescriptor(parseOne(t, `
usb: 0x200
class: 0
subclass: 0
protocol: 0
maxpacketsize: 8
vid: 0x403
pid: 0x6014
version: 0x900
manufacturer: FTDI
product: 2
serialnumber: "FT1ABC1"
`), strs)
	require.NoError(t, err)
	assert.Equal(t, usb.DeviceDescriptor{
		BcdUSB:          0x200,
		BMaxPacketSize0: 8,
		IDVendor:        0x403,
		IDProduct:       0x6014,
		BcdDevice:       0x900,
		IManufacturer:   1,
		IProduct:        2,
		ISerialNumber:   2,
	}, d)
	s, ok := strs.Lookup(2)
	assert.True(t, ok)
	assert.Equal(t, "FT1ABC1", s)
}

func TestTranslateDeviceDescriptorErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		err  error
	}{
		{name: "unknown key", src: `{vid: 1, colour: red}`, err: ErrUnknownField},
		{name: "not a mapping", src: `[1, 2]`, err: ErrMalformedDocument},
		{name: "vid out of range", src: `{vid: 0x10000}`, err: ErrMalformedDocument},
		{name: "negative class", src: `{class: -1}`, err: ErrMalformedDocument},
		{name: "text where integer expected", src: `{pid: abc}`, err: ErrMalformedDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := translateDeviceDescriptor(parseOne(t, tt.src), usb.NewStringTable())
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestTranslateDeviceDescriptorKeysIgnoreCase(t *testing.T) {
	d, err := translateDeviceDescriptor(parseOne(t, `{VID: 0x403, Pid: "0x6001"}`), usb.NewStringTable())
	require.NoError(t, err)
	assert.Equal(t, uint16(0x403), d.IDVendor)
	assert.Equal(t, uint16(0x6001), d.IDProduct)
}

func TestTranslateSpeed(t *testing.T) {
	s, err := translateSpeed(parseOne(t, `High`))
	require.NoError(t, err)
	assert.Equal(t, usb.SpeedHigh, s)

	s, err = translateSpeed(parseOne(t, `2`))
	require.NoError(t, err)
	assert.Equal(t, usb.SpeedFull, s)

	_, err = translateSpeed(parseOne(t, `ludicrous`))
	assert.ErrorIs(t, err, ErrInvalidSpeed)
	assert.ErrorIs(t, err, ErrInvalidEnumValue)

	_, err = translateSpeed(parseOne(t, `9`))
	assert.ErrorIs(t, err, ErrInvalidSpeed)
}

func TestTranslateConfigDescriptor(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		attrs uint8
		power uint8
	}{
		{name: "both features", src: `{attributes: [selfpowered, wakeup]}`, attrs: 0xE0},
		{name: "no features", src: `{attributes: []}`, attrs: 0x80},
		{name: "attributes omitted", src: `{maxpower: 100}`, attrs: 0x80, power: 50},
		{name: "odd milliamps round down", src: `{maxpower: 101, attributes: [WakeUp]}`, attrs: 0xA0, power: 50},
		{name: "self powered only", src: `{attributes: [selfpowered], maxpower: 500}`, attrs: 0xC0, power: 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := translateConfigDescriptor(parseOne(t, tt.src), usb.NewStringTable())
			require.NoError(t, err)
			assert.Equal(t, tt.attrs, d.BMAttributes)
			assert.Equal(t, tt.power, d.BMaxPower)
		})
	}
}

func TestTranslateConfigDescriptorErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		err  error
	}{
		{name: "unknown key", src: `{maxcurrent: 100}`, err: ErrUnknownField},
		{name: "unknown feature", src: `{attributes: [batterypowered]}`, err: ErrInvalidFeature},
		{name: "attributes not a list", src: `{attributes: selfpowered}`, err: ErrMalformedDocument},
		{name: "too much power", src: `{maxpower: 900}`, err: ErrMalformedDocument},
		{name: "reserved value", src: `{value: 0}`, err: ErrMalformedDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := translateConfigDescriptor(parseOne(t, tt.src), usb.NewStringTable())
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestTranslateInterfaceDescriptor(t *testing.T) {
	strs := usb.NewStringTable()
	d, err := translateInterfaceDescriptor(parseOne(t, `{class: 0xff, subclass: 0xfe, protocol: 1, interface: "UART A"}`), strs)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), d.BInterfaceClass)
	assert.Equal(t, uint8(0xfe), d.BInterfaceSubClass)
	assert.Equal(t, uint8(1), d.BInterfaceProtocol)
	assert.Equal(t, uint8(1), d.IInterface)
	assert.False(t, d.numbered)

	d, err = translateInterfaceDescriptor(parseOne(t, `{number: 0}`), strs)
	require.NoError(t, err)
	assert.True(t, d.numbered)
	assert.Equal(t, uint8(0), d.BInterfaceNumber)

	_, err = translateInterfaceDescriptor(parseOne(t, `{alternate: 1}`), strs)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestTranslateEndpointDescriptor(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want usb.EndpointDescriptor
	}{
		{
			name: "type defaults to bulk",
			src:  `{number: 1, direction: in}`,
			want: usb.EndpointDescriptor{BEndpointAddress: 0x81, BMAttributes: 0x02},
		},
		{
			name: "out endpoint",
			src:  `{number: 2, direction: OUT}`,
			want: usb.EndpointDescriptor{BEndpointAddress: 0x02, BMAttributes: 0x02},
		},
		{
			name: "interrupt with interval",
			src:  `{number: 15, direction: in, type: Interrupt, interval: 10, maxpacketsize: 8}`,
			want: usb.EndpointDescriptor{BEndpointAddress: 0x8F, BMAttributes: 0x03, WMaxPacketSize: 8, BInterval: 10},
		},
		{
			name: "isochronous",
			src:  `{number: 3, direction: out, type: isochronous, endpoint: 4}`,
			want: usb.EndpointDescriptor{BEndpointAddress: 0x03, BMAttributes: 0x01, IEndpoint: 4},
		},
		{
			name: "control",
			src:  `{direction: in, number: 4, type: control}`,
			want: usb.EndpointDescriptor{BEndpointAddress: 0x84, BMAttributes: 0x00},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := translateEndpointDescriptor(parseOne(t, tt.src), usb.NewStringTable())
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestTranslateEndpointDescriptorErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		err  error
	}{
		{name: "number 16", src: `{number: 16, direction: in}`, err: ErrInvalidEndpointNumber},
		{name: "number 0", src: `{number: 0, direction: in}`, err: ErrInvalidEndpointNumber},
		{name: "negative number", src: `{number: -3, direction: in}`, err: ErrInvalidEndpointNumber},
		{name: "number as text", src: `{number: "1", direction: in}`, err: ErrInvalidEndpointNumber},
		{name: "bad direction", src: `{number: 1, direction: up}`, err: ErrInvalidDirection},
		{name: "bad type", src: `{number: 1, direction: in, type: stream}`, err: ErrInvalidEndpointType},
		{name: "missing number", src: `{direction: in}`, err: ErrMissingField},
		{name: "missing direction", src: `{number: 1}`, err: ErrMissingField},
		{name: "unknown key", src: `{number: 1, direction: in, sync: adaptive}`, err: ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := translateEndpointDescriptor(parseOne(t, tt.src), usb.NewStringTable())
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSynthesizeEndpoint(t *testing.T) {
	d, err := synthesizeEndpoint(5, usb.EndpointDirIn)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x85), d.BEndpointAddress)
	assert.Equal(t, usb.TransferTypeBulk, d.TransferType())

	_, err = synthesizeEndpoint(16, usb.EndpointDirOut)
	assert.ErrorIs(t, err, ErrInvalidEndpointNumber)
}
