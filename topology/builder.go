package topology

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Alia5/usbtopo/usb"
	"github.com/Alia5/usbtopo/virtualbus"
)

// Device descriptor fields left at zero get these values.
const (
	DefaultBcdUSB         = 0x0200
	DefaultMaxPacketSize0 = 64
	DefaultBus            = 1
)

// Building a device runs three stages: parse the document subtree into
// definitions, fill every omitted part with its default, then construct
// the virtualbus objects.

type deviceDef struct {
	descriptor usb.DeviceDescriptor
	opts       virtualbus.DeviceOptions
	hasBus     bool
	hasAddress bool
	configs    []configDef
}

type configDef struct {
	descriptor usb.ConfigDescriptor
	groups     []interfaceGroupDef
	// interfaces is the repeat-expanded list produced by the fill stage.
	interfaces []alternativeDef
}

type interfaceGroupDef struct {
	repeat int
	alt    alternativeDef
}

type alternativeDef struct {
	descriptor interfaceDescriptor
	endpoints  []usb.EndpointDescriptor
}

// buildContext is the per-device build state threaded through interface
// fills. lastEndpoint is the highest endpoint number of the interface built
// last.
type buildContext struct {
	lastEndpoint int
}

// buildEntry replaces the backend's devices with those of one document entry.
func buildEntry(backend *virtualbus.Backend, entry Value, logger *slog.Logger) error {
	backend.FlushDevices()
	if err := expectMapping(entry, "top-level entry"); err != nil {
		return err
	}
	devices, ok := entry.Get("devices")
	if !ok {
		return nil
	}
	if err := expectSequence(devices, "devices"); err != nil {
		return err
	}
	for i, item := range devices.Items {
		dev, err := buildDevice(item, i)
		if err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
		if err := backend.AddDevice(dev); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
		logger.Debug("built virtual device",
			"device", dev.String(),
			"configurations", len(dev.Configurations),
			"speed", dev.Descriptor.Speed.String())
	}
	return nil
}

// buildDevice compiles one device definition. position is the device's index
// within its entry and only matters when no address is declared.
func buildDevice(v Value, position int) (*virtualbus.Device, error) {
	def, err := parseDevice(v)
	if err != nil {
		return nil, err
	}
	def, err = fillDevice(def, position)
	if err != nil {
		return nil, err
	}
	return constructDevice(def)
}

func parseDevice(v Value) (deviceDef, error) {
	def := deviceDef{
		opts: virtualbus.DeviceOptions{
			Strings:    usb.NewStringTable(),
			Properties: map[string]any{},
		},
	}
	if err := expectMapping(v, "device"); err != nil {
		return def, err
	}
	var (
		descriptor Value
		hasDesc    bool
	)
	for _, p := range v.Pairs {
		key := strings.ToLower(p.Key)
		switch key {
		case "descriptor":
			descriptor, hasDesc = p.Value, true
		case "configurations":
			if p.Value.Kind == KindNull {
				continue
			}
			if err := expectSequence(p.Value, "configurations"); err != nil {
				return def, err
			}
			for i, item := range p.Value.Items {
				cfg, err := parseConfiguration(item, def.opts.Strings)
				if err != nil {
					return def, fmt.Errorf("configurations[%d]: %w", i, err)
				}
				def.configs = append(def.configs, cfg)
			}
		case "bus":
			bus, err := asUint[uint8](p.Value)
			if err != nil {
				return def, fmt.Errorf("bus: %w", err)
			}
			def.opts.Bus, def.hasBus = bus, true
		case "address":
			addr, err := asUint[uint8](p.Value)
			if err != nil {
				return def, fmt.Errorf("address: %w", err)
			}
			def.opts.Address, def.hasAddress = addr, true
		case "noaccess":
			flag, err := asBool(p.Value)
			if err != nil {
				return def, fmt.Errorf("noaccess: %w", err)
			}
			def.opts.NoAccess = flag
		case "speed":
			speed, err := translateSpeed(p.Value)
			if err != nil {
				return def, err
			}
			def.opts.Speed = speed
		default:
			def.opts.Properties[p.Key] = p.Value.Interface()
		}
	}
	if !hasDesc || descriptor.Empty() {
		return def, fmt.Errorf("%w: device (line %d)", ErrMissingDescriptor, v.Line)
	}
	desc, err := translateDeviceDescriptor(descriptor, def.opts.Strings)
	if err != nil {
		return def, fmt.Errorf("descriptor: %w", err)
	}
	def.descriptor = desc
	return def, nil
}

func parseConfiguration(v Value, strs *usb.StringTable) (configDef, error) {
	def := configDef{descriptor: usb.ConfigDescriptor{BMAttributes: usb.ConfigAttrReserved}}
	if err := expectMapping(v, "configuration"); err != nil {
		return def, err
	}
	for _, p := range v.Pairs {
		switch strings.ToLower(p.Key) {
		case "descriptor":
			desc, err := translateConfigDescriptor(p.Value, strs)
			if err != nil {
				return def, fmt.Errorf("descriptor: %w", err)
			}
			def.descriptor = desc
		case "interfaces":
			if p.Value.Kind == KindNull {
				continue
			}
			if err := expectSequence(p.Value, "interfaces"); err != nil {
				return def, err
			}
			for i, item := range p.Value.Items {
				group, err := parseInterfaceGroup(item, strs)
				if err != nil {
					return def, fmt.Errorf("interfaces[%d]: %w", i, err)
				}
				def.groups = append(def.groups, group)
			}
		default:
			return def, unknownField(p.Key, p.Value)
		}
	}
	return def, nil
}

func parseInterfaceGroup(v Value, strs *usb.StringTable) (interfaceGroupDef, error) {
	def := interfaceGroupDef{repeat: 1}
	if v.Kind != KindMapping {
		return def, fmt.Errorf("%w: %s entry (line %d)", ErrInvalidInterfaceEntry, v.Kind, v.Line)
	}
	for _, p := range v.Pairs {
		switch strings.ToLower(p.Key) {
		case "alternatives":
			if p.Value.Kind == KindNull {
				continue
			}
			if p.Value.Kind != KindSequence {
				return def, fmt.Errorf("%w: alternatives is a %s (line %d)", ErrInvalidInterfaceEntry, p.Value.Kind, p.Value.Line)
			}
			if n := len(p.Value.Items); n > 1 {
				return def, fmt.Errorf("%w: %d alternatives (line %d)", ErrUnsupportedAlternateCount, n, p.Value.Line)
			}
			if len(p.Value.Items) == 1 {
				alt, err := parseAlternative(p.Value.Items[0], strs)
				if err != nil {
					return def, fmt.Errorf("alternatives[0]: %w", err)
				}
				def.alt = alt
			}
		case "repeat":
			n, ok := asInt(p.Value)
			if !ok || n < 0 {
				return def, fmt.Errorf("%w: repeat count %s (line %d)", ErrInvalidInterfaceEntry, p.Value.String(), p.Value.Line)
			}
			if n > 0xFF {
				return def, fmt.Errorf("%w: repeat count %d exceeds 255 (line %d)", ErrInvalidInterfaceEntry, n, p.Value.Line)
			}
			def.repeat = int(n)
		default:
			return def, fmt.Errorf("%w %q (line %d)", ErrInvalidInterfaceEntry, p.Key, p.Value.Line)
		}
	}
	return def, nil
}

func parseAlternative(v Value, strs *usb.StringTable) (alternativeDef, error) {
	var def alternativeDef
	if err := expectMapping(v, "alternative"); err != nil {
		return def, err
	}
	for _, p := range v.Pairs {
		switch strings.ToLower(p.Key) {
		case "descriptor":
			desc, err := translateInterfaceDescriptor(p.Value, strs)
			if err != nil {
				return def, fmt.Errorf("descriptor: %w", err)
			}
			def.descriptor = desc
		case "endpoints":
			if p.Value.Kind == KindNull {
				continue
			}
			if err := expectSequence(p.Value, "endpoints"); err != nil {
				return def, err
			}
			for i, item := range p.Value.Items {
				ep, err := parseEndpoint(item, strs)
				if err != nil {
					return def, fmt.Errorf("endpoints[%d]: %w", i, err)
				}
				def.endpoints = append(def.endpoints, ep)
			}
		default:
			return def, unknownField(p.Key, p.Value)
		}
	}
	return def, nil
}

func parseEndpoint(v Value, strs *usb.StringTable) (usb.EndpointDescriptor, error) {
	if err := expectMapping(v, "endpoint"); err != nil {
		return usb.EndpointDescriptor{}, err
	}
	var (
		desc    usb.EndpointDescriptor
		hasDesc bool
	)
	for _, p := range v.Pairs {
		if !strings.EqualFold(p.Key, "descriptor") {
			return desc, unknownField(p.Key, p.Value)
		}
		d, err := translateEndpointDescriptor(p.Value, strs)
		if err != nil {
			return desc, fmt.Errorf("descriptor: %w", err)
		}
		desc, hasDesc = d, true
	}
	if !hasDesc {
		return desc, fmt.Errorf("%w: endpoint (line %d)", ErrMissingDescriptor, v.Line)
	}
	return desc, nil
}

// fillDevice applies the device level defaults and fills every configuration.
func fillDevice(def deviceDef, position int) (deviceDef, error) {
	if def.descriptor.BcdUSB == 0 {
		def.descriptor.BcdUSB = DefaultBcdUSB
	}
	if def.descriptor.BMaxPacketSize0 == 0 {
		def.descriptor.BMaxPacketSize0 = DefaultMaxPacketSize0
	}
	if !def.hasBus {
		def.opts.Bus = DefaultBus
	}
	if !def.hasAddress {
		if position+1 > 0xFF {
			return def, fmt.Errorf("%w: no address left for device %d", ErrMalformedDocument, position)
		}
		def.opts.Address = uint8(position + 1)
	}
	if len(def.configs) == 0 {
		def.configs = []configDef{{descriptor: usb.ConfigDescriptor{BMAttributes: usb.ConfigAttrReserved}}}
	}
	if len(def.configs) > 0xFF {
		return def, fmt.Errorf("%w: %d configurations", ErrMalformedDocument, len(def.configs))
	}
	ctx := buildContext{}
	for i := range def.configs {
		var err error
		def.configs[i], ctx, err = fillConfiguration(ctx, def.configs[i], i)
		if err != nil {
			return def, fmt.Errorf("configurations[%d]: %w", i, err)
		}
	}
	return def, nil
}

// fillConfiguration numbers the configuration, expands interface repeats and
// fills every resulting interface.
func fillConfiguration(ctx buildContext, cfg configDef, position int) (configDef, buildContext, error) {
	if cfg.descriptor.BConfigurationValue == 0 {
		cfg.descriptor.BConfigurationValue = uint8(position + 1)
	}
	groups := cfg.groups
	total := 0
	for _, g := range groups {
		total += g.repeat
	}
	if total == 0 {
		groups = []interfaceGroupDef{{repeat: 1}}
	}
	if total > 0xFF {
		return cfg, ctx, fmt.Errorf("%w: %d interfaces exceed 255", ErrMalformedDocument, total)
	}
	cfg.interfaces = nil
	for _, g := range groups {
		for range g.repeat {
			alt := g.alt
			alt.endpoints = append([]usb.EndpointDescriptor(nil), g.alt.endpoints...)
			if !alt.descriptor.numbered {
				alt.descriptor.BInterfaceNumber = uint8(len(cfg.interfaces))
			}
			var err error
			alt, ctx, err = fillInterface(ctx, alt)
			if err != nil {
				return cfg, ctx, fmt.Errorf("interface %d: %w", len(cfg.interfaces), err)
			}
			cfg.interfaces = append(cfg.interfaces, alt)
		}
	}
	return cfg, ctx, nil
}

// fillInterface synthesizes an IN/OUT bulk pair when the interface declares
// no endpoints, numbered right after the highest number of the previously
// built interface, and returns the updated context.
func fillInterface(ctx buildContext, alt alternativeDef) (alternativeDef, buildContext, error) {
	if len(alt.endpoints) == 0 {
		in, err := synthesizeEndpoint(ctx.lastEndpoint+1, usb.EndpointDirIn)
		if err != nil {
			return alt, ctx, err
		}
		out, err := synthesizeEndpoint(ctx.lastEndpoint+2, usb.EndpointDirOut)
		if err != nil {
			return alt, ctx, err
		}
		alt.endpoints = []usb.EndpointDescriptor{in, out}
	}
	last := 0
	for _, ep := range alt.endpoints {
		last = max(last, int(ep.BEndpointAddress&0x7F))
	}
	ctx.lastEndpoint = last
	return alt, ctx, nil
}

func constructDevice(def deviceDef) (*virtualbus.Device, error) {
	dev := virtualbus.NewDevice(def.descriptor, def.opts)
	for _, cdef := range def.configs {
		cfg := virtualbus.NewConfiguration(cdef.descriptor)
		for _, alt := range cdef.interfaces {
			iface := virtualbus.NewInterface(alt.descriptor.InterfaceDescriptor)
			for _, ep := range alt.endpoints {
				iface.AddEndpoint(virtualbus.NewEndpoint(ep))
			}
			cfg.AddInterface(iface)
		}
		dev.AddConfiguration(cfg)
	}
	if err := dev.Build(); err != nil {
		return nil, err
	}
	return dev, nil
}
