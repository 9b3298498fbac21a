// Package virtualbus holds the runtime object model of a virtual USB bus:
// devices with their configurations, interfaces and endpoints, and the
// Backend registry they are published to.
package virtualbus

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Alia5/usbtopo/usb"
)

// Endpoint is a non-control endpoint of an interface.
type Endpoint struct {
	Descriptor usb.EndpointDescriptor
}

// NewEndpoint wraps an endpoint descriptor.
func NewEndpoint(desc usb.EndpointDescriptor) *Endpoint {
	return &Endpoint{Descriptor: desc}
}

// Interface is a single-altsetting interface and its endpoints.
type Interface struct {
	Descriptor usb.InterfaceDescriptor
	Endpoints  []*Endpoint
}

func NewInterface(desc usb.InterfaceDescriptor) *Interface {
	return &Interface{Descriptor: desc}
}

func (i *Interface) AddEndpoint(ep *Endpoint) {
	i.Endpoints = append(i.Endpoints, ep)
}

// Configuration groups the interfaces selectable with one SET_CONFIGURATION.
type Configuration struct {
	Descriptor usb.ConfigDescriptor
	Interfaces []*Interface
}

func NewConfiguration(desc usb.ConfigDescriptor) *Configuration {
	return &Configuration{Descriptor: desc}
}

func (c *Configuration) AddInterface(iface *Interface) {
	c.Interfaces = append(c.Interfaces, iface)
}

// Bytes returns the full configuration descriptor set: the configuration
// header followed by every interface and its endpoints.
func (c *Configuration) Bytes() []byte {
	var b bytes.Buffer
	c.Descriptor.Write(&b)
	for _, iface := range c.Interfaces {
		iface.Descriptor.Write(&b)
		for _, ep := range iface.Endpoints {
			ep.Descriptor.Write(&b)
		}
	}
	return b.Bytes()
}

func (c *Configuration) totalLength() int {
	n := usb.ConfigDescLen
	for _, iface := range c.Interfaces {
		n += usb.InterfaceDescLen + len(iface.Endpoints)*usb.EndpointDescLen
	}
	return n
}

// DeviceOptions are the non-descriptor properties of a device.
type DeviceOptions struct {
	Bus      uint8
	Address  uint8
	NoAccess bool
	// Speed overrides the speed derived from bcdUSB when set.
	Speed   usb.Speed
	Strings *usb.StringTable
	// Properties carries backend-specific extensions declared in the
	// topology document. They are not interpreted here.
	Properties map[string]any
}

// Device is a virtual USB device.
type Device struct {
	Descriptor     usb.DeviceDescriptor
	Bus            uint8
	Address        uint8
	NoAccess       bool
	Strings        *usb.StringTable
	Properties     map[string]any
	Configurations []*Configuration

	built bool
}

func NewDevice(desc usb.DeviceDescriptor, opts DeviceOptions) *Device {
	if opts.Speed != usb.SpeedUnknown {
		desc.Speed = opts.Speed
	}
	if opts.Strings == nil {
		opts.Strings = usb.NewStringTable()
	}
	if opts.Properties == nil {
		opts.Properties = map[string]any{}
	}
	return &Device{
		Descriptor: desc,
		Bus:        opts.Bus,
		Address:    opts.Address,
		NoAccess:   opts.NoAccess,
		Strings:    opts.Strings,
		Properties: opts.Properties,
	}
}

func (d *Device) AddConfiguration(c *Configuration) {
	d.Configurations = append(d.Configurations, c)
}

// Built reports whether Build completed successfully.
func (d *Device) Built() bool { return d.built }

// Build fills the derived descriptor fields: counts, total lengths, speed
// and default endpoint packet sizes. It must be called once every
// configuration is attached and before the device is published.
func (d *Device) Build() error {
	if len(d.Configurations) == 0 {
		return errors.New("virtualbus: device has no configuration")
	}
	if len(d.Configurations) > 0xFF {
		return fmt.Errorf("virtualbus: too many configurations: %d", len(d.Configurations))
	}
	if d.Descriptor.Speed == usb.SpeedUnknown {
		d.Descriptor.Speed = usb.SpeedForBcdUSB(d.Descriptor.BcdUSB)
	}
	d.Descriptor.BNumConfigurations = uint8(len(d.Configurations))
	for _, cfg := range d.Configurations {
		if len(cfg.Interfaces) > 0xFF {
			return fmt.Errorf("virtualbus: configuration %d: too many interfaces: %d",
				cfg.Descriptor.BConfigurationValue, len(cfg.Interfaces))
		}
		cfg.Descriptor.BNumInterfaces = uint8(len(cfg.Interfaces))
		for _, iface := range cfg.Interfaces {
			iface.Descriptor.BNumEndpoints = uint8(len(iface.Endpoints))
			for _, ep := range iface.Endpoints {
				if ep.Descriptor.WMaxPacketSize == 0 {
					ep.Descriptor.WMaxPacketSize = usb.DefaultMaxPacketSize(ep.Descriptor.TransferType(), d.Descriptor.Speed)
				}
			}
		}
		total := cfg.totalLength()
		if total > 0xFFFF {
			return fmt.Errorf("virtualbus: configuration %d: descriptor set too large: %d",
				cfg.Descriptor.BConfigurationValue, total)
		}
		cfg.Descriptor.WTotalLength = uint16(total)
	}
	d.built = true
	return nil
}

// Configuration returns the configuration with the given bConfigurationValue.
func (d *Device) Configuration(value uint8) (*Configuration, bool) {
	for _, c := range d.Configurations {
		if c.Descriptor.BConfigurationValue == value {
			return c, true
		}
	}
	return nil, false
}

// StringDescriptor serves GET_DESCRIPTOR(STRING) for idx.
func (d *Device) StringDescriptor(idx uint8) ([]byte, bool) {
	return d.Strings.Descriptor(idx)
}

func (d *Device) String() string {
	return fmt.Sprintf("%03d:%03d %04x:%04x", d.Bus, d.Address, d.Descriptor.IDVendor, d.Descriptor.IDProduct)
}
