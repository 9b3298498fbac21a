package topology

import (
	"fmt"
	"strings"

	"github.com/Alia5/usbtopo/usb"
)

// Each descriptor level owns a fixed table from document keys to descriptor
// fields. Lookups are case-insensitive; keys missing from a table are
// rejected with ErrUnknownField.

type deviceField func(d *usb.DeviceDescriptor, v Value, strs *usb.StringTable) error

var deviceFields = map[string]deviceField{
	"usb":           func(d *usb.DeviceDescriptor, v Value, _ *usb.StringTable) (err error) { d.BcdUSB, err = asUint[uint16](v); return },
	"class":         func(d *usb.DeviceDescriptor, v Value, _ *usb.StringTable) (err error) { d.BDeviceClass, err = asUint[uint8](v); return },
	"subclass":      func(d *usb.DeviceDescriptor, v Value, _ *usb.StringTable) (err error) { d.BDeviceSubClass, err = asUint[uint8](v); return },
	"protocol":      func(d *usb.DeviceDescriptor, v Value, _ *usb.StringTable) (err error) { d.BDeviceProtocol, err = asUint[uint8](v); return },
	"maxpacketsize": func(d *usb.DeviceDescriptor, v Value, _ *usb.StringTable) (err error) { d.BMaxPacketSize0, err = asUint[uint8](v); return },
	"vid":           func(d *usb.DeviceDescriptor, v Value, _ *usb.StringTable) (err error) { d.IDVendor, err = asUint[uint16](v); return },
	"pid":           func(d *usb.DeviceDescriptor, v Value, _ *usb.StringTable) (err error) { d.IDProduct, err = asUint[uint16](v); return },
	"version":       func(d *usb.DeviceDescriptor, v Value, _ *usb.StringTable) (err error) { d.BcdDevice, err = asUint[uint16](v); return },
	"manufacturer":  func(d *usb.DeviceDescriptor, v Value, s *usb.StringTable) (err error) { d.IManufacturer, err = asStringRef(v, s); return },
	"product":       func(d *usb.DeviceDescriptor, v Value, s *usb.StringTable) (err error) { d.IProduct, err = asStringRef(v, s); return },
	"serialnumber":  func(d *usb.DeviceDescriptor, v Value, s *usb.StringTable) (err error) { d.ISerialNumber, err = asStringRef(v, s); return },
}

// translateDeviceDescriptor maps a device "descriptor" mapping.
func translateDeviceDescriptor(m Value, strs *usb.StringTable) (usb.DeviceDescriptor, error) {
	var d usb.DeviceDescriptor
	if err := expectMapping(m, "device descriptor"); err != nil {
		return d, err
	}
	for _, p := range m.Pairs {
		set, ok := deviceFields[strings.ToLower(p.Key)]
		if !ok {
			return d, unknownField(p.Key, p.Value)
		}
		if err := set(&d, p.Value, strs); err != nil {
			return d, fmt.Errorf("%s: %w", p.Key, err)
		}
	}
	return d, nil
}

// translateSpeed resolves a device speed given by name or by enumerant.
func translateSpeed(v Value) (usb.Speed, error) {
	if name, ok := asString(v); ok {
		s, ok := usb.ParseSpeed(name)
		if !ok {
			return 0, fmt.Errorf("%w %q (line %d)", ErrInvalidSpeed, name, v.Line)
		}
		return s, nil
	}
	n, ok := asInt(v)
	if !ok || n <= int64(usb.SpeedUnknown) || n > int64(usb.SpeedSuperPlus) {
		return 0, fmt.Errorf("%w %s (line %d)", ErrInvalidSpeed, v.String(), v.Line)
	}
	return usb.Speed(n), nil
}

type configField func(d *usb.ConfigDescriptor, v Value, strs *usb.StringTable) error

var configFields = map[string]configField{
	"attributes": func(d *usb.ConfigDescriptor, v Value, _ *usb.StringTable) (err error) {
		d.BMAttributes, err = translateConfigAttributes(v)
		return
	},
	"maxpower": func(d *usb.ConfigDescriptor, v Value, _ *usb.StringTable) error {
		// bMaxPower counts 2 mA units
		ma, err := asUint[uint16](v)
		if err != nil {
			return err
		}
		if ma > 510 {
			return malformed(v, "max power %d mA exceeds 510 mA", ma)
		}
		d.BMaxPower = uint8(ma / 2)
		return nil
	},
	"configuration": func(d *usb.ConfigDescriptor, v Value, s *usb.StringTable) (err error) {
		d.IConfiguration, err = asStringRef(v, s)
		return
	},
	"value": func(d *usb.ConfigDescriptor, v Value, _ *usb.StringTable) error {
		n, err := asUint[uint8](v)
		if err != nil {
			return err
		}
		if n == 0 {
			return malformed(v, "configuration value 0 is reserved for the unconfigured state")
		}
		d.BConfigurationValue = n
		return nil
	},
}

// translateConfigDescriptor maps a configuration "descriptor" mapping.
// bmAttributes always carries the reserved bit 7, even when "attributes" is
// omitted. A zero bConfigurationValue is assigned later from the position.
func translateConfigDescriptor(m Value, strs *usb.StringTable) (usb.ConfigDescriptor, error) {
	d := usb.ConfigDescriptor{BMAttributes: usb.ConfigAttrReserved}
	if err := expectMapping(m, "configuration descriptor"); err != nil {
		return d, err
	}
	for _, p := range m.Pairs {
		set, ok := configFields[strings.ToLower(p.Key)]
		if !ok {
			return d, unknownField(p.Key, p.Value)
		}
		if err := set(&d, p.Value, strs); err != nil {
			return d, fmt.Errorf("%s: %w", p.Key, err)
		}
	}
	return d, nil
}

// translateConfigAttributes folds a list of feature names into bmAttributes.
func translateConfigAttributes(v Value) (uint8, error) {
	if err := expectSequence(v, "attributes"); err != nil {
		return 0, err
	}
	attrs := uint8(usb.ConfigAttrReserved)
	for _, it := range v.Items {
		name, ok := asString(it)
		if !ok {
			return 0, fmt.Errorf("%w %s (line %d)", ErrInvalidFeature, it.String(), it.Line)
		}
		bit, ok := usb.ParseConfigFeature(name)
		if !ok {
			return 0, fmt.Errorf("%w %q (line %d)", ErrInvalidFeature, name, it.Line)
		}
		attrs |= bit
	}
	return attrs, nil
}

// interfaceDescriptor is an interface descriptor plus whether its number was
// given explicitly.
type interfaceDescriptor struct {
	usb.InterfaceDescriptor
	numbered bool
}

type interfaceField func(d *interfaceDescriptor, v Value, strs *usb.StringTable) error

var interfaceFields = map[string]interfaceField{
	"class":    func(d *interfaceDescriptor, v Value, _ *usb.StringTable) (err error) { d.BInterfaceClass, err = asUint[uint8](v); return },
	"subclass": func(d *interfaceDescriptor, v Value, _ *usb.StringTable) (err error) { d.BInterfaceSubClass, err = asUint[uint8](v); return },
	"protocol": func(d *interfaceDescriptor, v Value, _ *usb.StringTable) (err error) { d.BInterfaceProtocol, err = asUint[uint8](v); return },
	"interface": func(d *interfaceDescriptor, v Value, s *usb.StringTable) (err error) {
		d.IInterface, err = asStringRef(v, s)
		return
	},
	"number": func(d *interfaceDescriptor, v Value, _ *usb.StringTable) (err error) {
		d.BInterfaceNumber, err = asUint[uint8](v)
		d.numbered = err == nil
		return
	},
}

// translateInterfaceDescriptor maps an alternative "descriptor" mapping.
func translateInterfaceDescriptor(m Value, strs *usb.StringTable) (interfaceDescriptor, error) {
	var d interfaceDescriptor
	if err := expectMapping(m, "interface descriptor"); err != nil {
		return d, err
	}
	for _, p := range m.Pairs {
		set, ok := interfaceFields[strings.ToLower(p.Key)]
		if !ok {
			return d, unknownField(p.Key, p.Value)
		}
		if err := set(&d, p.Value, strs); err != nil {
			return d, fmt.Errorf("%s: %w", p.Key, err)
		}
	}
	return d, nil
}

type endpointField func(d *usb.EndpointDescriptor, v Value, strs *usb.StringTable) error

var endpointFields = map[string]endpointField{
	"number": func(d *usb.EndpointDescriptor, v Value, _ *usb.StringTable) error {
		n, ok := asInt(v)
		if !ok {
			return fmt.Errorf("%w %s (line %d)", ErrInvalidEndpointNumber, v.String(), v.Line)
		}
		num, err := endpointNumber(n)
		if err != nil {
			return fmt.Errorf("%w (line %d)", err, v.Line)
		}
		d.BEndpointAddress |= num
		return nil
	},
	"direction": func(d *usb.EndpointDescriptor, v Value, _ *usb.StringTable) error {
		name, _ := asString(v)
		dir, ok := usb.ParseDirection(name)
		if !ok {
			return fmt.Errorf("%w %s (line %d)", ErrInvalidDirection, v.String(), v.Line)
		}
		d.BEndpointAddress |= dir
		return nil
	},
	"type": func(d *usb.EndpointDescriptor, v Value, _ *usb.StringTable) error {
		name, _ := asString(v)
		tt, ok := usb.ParseTransferType(name)
		if !ok {
			return fmt.Errorf("%w %s (line %d)", ErrInvalidEndpointType, v.String(), v.Line)
		}
		d.BMAttributes = uint8(tt)
		return nil
	},
	"maxpacketsize": func(d *usb.EndpointDescriptor, v Value, _ *usb.StringTable) (err error) {
		d.WMaxPacketSize, err = asUint[uint16](v)
		return
	},
	"interval": func(d *usb.EndpointDescriptor, v Value, _ *usb.StringTable) (err error) {
		d.BInterval, err = asUint[uint8](v)
		return
	},
	"endpoint": func(d *usb.EndpointDescriptor, v Value, s *usb.StringTable) (err error) {
		d.IEndpoint, err = asStringRef(v, s)
		return
	},
}

// translateEndpointDescriptor maps an endpoint "descriptor" mapping. number
// and direction are mandatory; the transfer type defaults to bulk.
func translateEndpointDescriptor(m Value, strs *usb.StringTable) (usb.EndpointDescriptor, error) {
	d := usb.EndpointDescriptor{BMAttributes: uint8(usb.TransferTypeBulk)}
	if err := expectMapping(m, "endpoint descriptor"); err != nil {
		return d, err
	}
	for _, required := range []string{"number", "direction"} {
		if _, ok := m.Get(required); !ok {
			return d, fmt.Errorf("%w: endpoint %s (line %d)", ErrMissingField, required, m.Line)
		}
	}
	for _, p := range m.Pairs {
		set, ok := endpointFields[strings.ToLower(p.Key)]
		if !ok {
			return d, unknownField(p.Key, p.Value)
		}
		if err := set(&d, p.Value, strs); err != nil {
			return d, fmt.Errorf("%s: %w", p.Key, err)
		}
	}
	return d, nil
}

// endpointNumber checks that n is a valid non-control endpoint number.
func endpointNumber(n int64) (uint8, error) {
	if n <= 0 || n > usb.MaxEndpointNumber {
		return 0, fmt.Errorf("%w %d", ErrInvalidEndpointNumber, n)
	}
	return uint8(n), nil
}

// synthesizeEndpoint builds the descriptor of an implicit bulk endpoint.
func synthesizeEndpoint(number int, dir uint8) (usb.EndpointDescriptor, error) {
	num, err := endpointNumber(int64(number))
	if err != nil {
		return usb.EndpointDescriptor{}, err
	}
	return usb.EndpointDescriptor{
		BEndpointAddress: num | dir,
		BMAttributes:     uint8(usb.TransferTypeBulk),
	}, nil
}
