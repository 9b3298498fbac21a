package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/usbtopo/usb"
	"github.com/Alia5/usbtopo/virtualbus"
)

func endpointAddresses(iface *virtualbus.Interface) []uint8 {
	out := make([]uint8, 0, len(iface.Endpoints))
	for _, ep := range iface.Endpoints {
		out = append(out, ep.Descriptor.BEndpointAddress)
	}
	return out
}

func TestFillInterfaceSynthesizesPair(t *testing.T) {
	alt, ctx, err := fillInterface(buildContext{}, alternativeDef{})
	require.NoError(t, err)
	require.Len(t, alt.endpoints, 2)
	assert.Equal(t, uint8(0x81), alt.endpoints[0].BEndpointAddress)
	assert.Equal(t, uint8(0x02), alt.endpoints[1].BEndpointAddress)
	assert.Equal(t, usb.TransferTypeBulk, alt.endpoints[0].TransferType())
	assert.Equal(t, 2, ctx.lastEndpoint)

	alt, ctx, err = fillInterface(ctx, alternativeDef{})
	require.NoError(t, err)
	assert.Equal(t, uint8(0x83), alt.endpoints[0].BEndpointAddress)
	assert.Equal(t, uint8(0x04), alt.endpoints[1].BEndpointAddress)
	assert.Equal(t, 4, ctx.lastEndpoint)
}

func TestFillInterfaceTracksDeclaredEndpoints(t *testing.T) {
	declared := alternativeDef{endpoints: []usb.EndpointDescriptor{
		{BEndpointAddress: 0x87},
		{BEndpointAddress: 0x03},
	}}
	alt, ctx, err := fillInterface(buildContext{lastEndpoint: 2}, declared)
	require.NoError(t, err)
	assert.Len(t, alt.endpoints, 2)
	assert.Equal(t, 7, ctx.lastEndpoint)

	// the counter follows the interface built last, even when it goes down
	_, ctx, err = fillInterface(ctx, alternativeDef{endpoints: []usb.EndpointDescriptor{{BEndpointAddress: 0x81}}})
	require.NoError(t, err)
	assert.Equal(t, 1, ctx.lastEndpoint)

	alt, ctx, err = fillInterface(ctx, alternativeDef{})
	require.NoError(t, err)
	assert.Equal(t, uint8(0x82), alt.endpoints[0].BEndpointAddress)
	assert.Equal(t, uint8(0x03), alt.endpoints[1].BEndpointAddress)
	assert.Equal(t, 3, ctx.lastEndpoint)
}

func TestFillInterfaceAfterHighEndpoint(t *testing.T) {
	ctx := buildContext{}
	var err error
	for _, addr := range []uint8{0x8F, 0x01} {
		_, ctx, err = fillInterface(ctx, alternativeDef{endpoints: []usb.EndpointDescriptor{{BEndpointAddress: addr}}})
		require.NoError(t, err)
	}
	alt, _, err := fillInterface(ctx, alternativeDef{})
	require.NoError(t, err)
	assert.Equal(t, uint8(0x82), alt.endpoints[0].BEndpointAddress)
	assert.Equal(t, uint8(0x03), alt.endpoints[1].BEndpointAddress)
}

func TestFillInterfaceRunsOutOfEndpoints(t *testing.T) {
	_, _, err := fillInterface(buildContext{lastEndpoint: 14}, alternativeDef{})
	assert.ErrorIs(t, err, ErrInvalidEndpointNumber)
}

func TestFillConfigurationExpandsRepeats(t *testing.T) {
	cfg := configDef{groups: []interfaceGroupDef{
		{repeat: 2},
		{repeat: 0},
		{repeat: 1, alt: alternativeDef{descriptor: interfaceDescriptor{
			InterfaceDescriptor: usb.InterfaceDescriptor{BInterfaceNumber: 9},
			numbered:            true,
		}}},
	}}
	cfg, ctx, err := fillConfiguration(buildContext{}, cfg, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), cfg.descriptor.BConfigurationValue)
	require.Len(t, cfg.interfaces, 3)
	assert.Equal(t, uint8(0), cfg.interfaces[0].descriptor.BInterfaceNumber)
	assert.Equal(t, uint8(1), cfg.interfaces[1].descriptor.BInterfaceNumber)
	assert.Equal(t, uint8(9), cfg.interfaces[2].descriptor.BInterfaceNumber)
	assert.Equal(t, uint8(0x85), cfg.interfaces[2].endpoints[0].BEndpointAddress)
	assert.Equal(t, 6, ctx.lastEndpoint)
}

func TestFillConfigurationInterfaceLimit(t *testing.T) {
	declared := alternativeDef{endpoints: []usb.EndpointDescriptor{{BEndpointAddress: 0x81}}}
	tests := []struct {
		name    string
		repeats []int
		wantErr bool
	}{
		{name: "255 interfaces", repeats: []int{200, 55}},
		{name: "256 interfaces", repeats: []int{200, 56}, wantErr: true},
		{name: "single group of 256", repeats: []int{256}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var groups []interfaceGroupDef
			for _, r := range tt.repeats {
				groups = append(groups, interfaceGroupDef{repeat: r, alt: declared})
			}
			cfg, _, err := fillConfiguration(buildContext{}, configDef{groups: groups}, 0)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedDocument)
				assert.Contains(t, err.Error(), "exceed 255")
				return
			}
			require.NoError(t, err)
			require.Len(t, cfg.interfaces, 255)
			assert.Equal(t, uint8(254), cfg.interfaces[254].descriptor.BInterfaceNumber)
		})
	}
}

func TestFillConfigurationSynthesizesInterface(t *testing.T) {
	for _, groups := range [][]interfaceGroupDef{nil, {{repeat: 0}}} {
		cfg, _, err := fillConfiguration(buildContext{}, configDef{
			descriptor: usb.ConfigDescriptor{BConfigurationValue: 4},
			groups:     groups,
		}, 2)
		require.NoError(t, err)
		assert.Equal(t, uint8(4), cfg.descriptor.BConfigurationValue)
		require.Len(t, cfg.interfaces, 1)
		assert.Len(t, cfg.interfaces[0].endpoints, 2)
	}
}

func TestBuildDeviceDefaults(t *testing.T) {
	dev, err := buildDevice(parseOne(t, `descriptor: {vid: 0x403, pid: 0x6014}`), 4)
	require.NoError(t, err)

	assert.Equal(t, uint8(DefaultBus), dev.Bus)
	assert.Equal(t, uint8(5), dev.Address)
	assert.Equal(t, uint16(DefaultBcdUSB), dev.Descriptor.BcdUSB)
	assert.Equal(t, uint8(DefaultMaxPacketSize0), dev.Descriptor.BMaxPacketSize0)
	assert.Equal(t, usb.SpeedHigh, dev.Descriptor.Speed)

	require.Len(t, dev.Configurations, 1)
	cfg := dev.Configurations[0]
	assert.Equal(t, uint8(1), cfg.Descriptor.BConfigurationValue)
	assert.Equal(t, uint8(0x80), cfg.Descriptor.BMAttributes)
	require.Len(t, cfg.Interfaces, 1)
	assert.Equal(t, []uint8{0x81, 0x02}, endpointAddresses(cfg.Interfaces[0]))
	assert.Equal(t, uint16(512), cfg.Interfaces[0].Endpoints[0].Descriptor.WMaxPacketSize)
}

func TestBuildDeviceEndpointNumberingSpansConfigurations(t *testing.T) {
	dev, err := buildDevice(parseOne(t, `
descriptor: {vid: 1}
configurations:
  - interfaces:
      - alternatives:
          - endpoints:
              - descriptor: {number: 5, direction: in}
      - {}
  - {}
`), 0)
	require.NoError(t, err)
	require.Len(t, dev.Configurations, 2)
	first := dev.Configurations[0]
	assert.Equal(t, []uint8{0x85}, endpointAddresses(first.Interfaces[0]))
	assert.Equal(t, []uint8{0x86, 0x07}, endpointAddresses(first.Interfaces[1]))
	assert.Equal(t, []uint8{0x88, 0x09}, endpointAddresses(dev.Configurations[1].Interfaces[0]))
}

func TestBuildDeviceProperties(t *testing.T) {
	dev, err := buildDevice(parseOne(t, `
bus: 2
address: 9
noaccess: "on"
speed: super
serial: FT2DEF
eeprom: {model: 93c66, data: [1, 2]}
descriptor: {vid: 0x403, pid: 0x6010, usb: 0x200, product: "Dual RS232-HS"}
`), 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), dev.Bus)
	assert.Equal(t, uint8(9), dev.Address)
	assert.True(t, dev.NoAccess)
	assert.Equal(t, usb.SpeedSuper, dev.Descriptor.Speed)
	assert.Equal(t, "FT2DEF", dev.Properties["serial"])
	assert.Equal(t, map[string]any{"model": "93c66", "data": []any{int64(1), int64(2)}}, dev.Properties["eeprom"])

	s, ok := dev.Strings.Lookup(dev.Descriptor.IProduct)
	assert.True(t, ok)
	assert.Equal(t, "Dual RS232-HS", s)
}

func TestBuildDeviceErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		err  error
	}{
		{name: "no descriptor", src: `{bus: 1}`, err: ErrMissingDescriptor},
		{name: "empty descriptor", src: `{descriptor: {}}`, err: ErrMissingField},
		{name: "not a mapping", src: `[descriptor]`, err: ErrMalformedDocument},
		{name: "bad speed", src: `{speed: warp, descriptor: {vid: 1}}`, err: ErrInvalidSpeed},
		{name: "bad noaccess", src: `{noaccess: maybe, descriptor: {vid: 1}}`, err: ErrInvalidEnumValue},
		{name: "configurations not a list", src: `{descriptor: {vid: 1}, configurations: {}}`, err: ErrMalformedDocument},
		{name: "configuration not a mapping", src: `{descriptor: {vid: 1}, configurations: [1]}`, err: ErrMalformedDocument},
		{name: "unknown configuration key", src: `{descriptor: {vid: 1}, configurations: [{power: 1}]}`, err: ErrUnknownField},
		{name: "interface not a mapping", src: `{descriptor: {vid: 1}, configurations: [{interfaces: [3]}]}`, err: ErrInvalidInterfaceEntry},
		{name: "unknown interface key", src: `{descriptor: {vid: 1}, configurations: [{interfaces: [{count: 2}]}]}`, err: ErrInvalidInterfaceEntry},
		{name: "negative repeat", src: `{descriptor: {vid: 1}, configurations: [{interfaces: [{repeat: -1}]}]}`, err: ErrInvalidInterfaceEntry},
		{name: "alternatives not a list", src: `{descriptor: {vid: 1}, configurations: [{interfaces: [{alternatives: {}}]}]}`, err: ErrInvalidInterfaceEntry},
		{
			name: "two alternatives",
			src:  `{descriptor: {vid: 1}, configurations: [{interfaces: [{alternatives: [{}, {}]}]}]}`,
			err:  ErrUnsupportedAlternateCount,
		},
		{
			name: "unknown alternative key",
			src:  `{descriptor: {vid: 1}, configurations: [{interfaces: [{alternatives: [{setting: 1}]}]}]}`,
			err:  ErrUnknownField,
		},
		{
			name: "endpoint without descriptor",
			src:  `{descriptor: {vid: 1}, configurations: [{interfaces: [{alternatives: [{endpoints: [{}]}]}]}]}`,
			err:  ErrMissingDescriptor,
		},
		{
			name: "unknown endpoint key",
			src:  `{descriptor: {vid: 1}, configurations: [{interfaces: [{alternatives: [{endpoints: [{address: 1}]}]}]}]}`,
			err:  ErrUnknownField,
		},
		{
			name: "auto numbering overflows",
			src:  `{descriptor: {vid: 1}, configurations: [{interfaces: [{repeat: 8}]}]}`,
			err:  ErrInvalidEndpointNumber,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildDevice(parseOne(t, tt.src), 0)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBuildDeviceErrorPath(t *testing.T) {
	_, err := buildDevice(parseOne(t, `
descriptor: {vid: 1}
configurations:
  - {}
  - interfaces:
      - alternatives:
          - endpoints:
              - descriptor: {number: 1, direction: in}
              - descriptor: {number: 99, direction: out}
`), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configurations[1]: interfaces[0]: alternatives[0]: endpoints[1]: descriptor: number:")
	assert.Contains(t, err.Error(), "line 9")
}
