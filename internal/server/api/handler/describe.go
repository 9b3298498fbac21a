package handler

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/Alia5/usbtopo/apitypes"
	"github.com/Alia5/usbtopo/usb"
	"github.com/Alia5/usbtopo/virtualbus"
)

// Summarize converts a device into its list entry.
func Summarize(d *virtualbus.Device) apitypes.Device {
	return apitypes.Device{
		Bus:            d.Bus,
		Address:        d.Address,
		Vid:            fmt.Sprintf("0x%04x", d.Descriptor.IDVendor),
		Pid:            fmt.Sprintf("0x%04x", d.Descriptor.IDProduct),
		Speed:          d.Descriptor.Speed.String(),
		NoAccess:       d.NoAccess,
		Configurations: len(d.Configurations),
	}
}

// Describe converts a device into its full descriptor tree. With raw set,
// every level also carries its wire bytes in hex.
func Describe(d *virtualbus.Device, raw bool) apitypes.DeviceDetail {
	desc := d.Descriptor
	lookup := func(idx uint8) string {
		s, _ := d.Strings.Lookup(idx)
		return s
	}
	out := apitypes.DeviceDetail{
		Bus:            d.Bus,
		Address:        d.Address,
		Speed:          desc.Speed.String(),
		NoAccess:       d.NoAccess,
		USB:            fmt.Sprintf("0x%04x", desc.BcdUSB),
		Class:          desc.BDeviceClass,
		SubClass:       desc.BDeviceSubClass,
		Protocol:       desc.BDeviceProtocol,
		MaxPacketSize0: desc.BMaxPacketSize0,
		Vid:            fmt.Sprintf("0x%04x", desc.IDVendor),
		Pid:            fmt.Sprintf("0x%04x", desc.IDProduct),
		Version:        fmt.Sprintf("0x%04x", desc.BcdDevice),
		Manufacturer:   lookup(desc.IManufacturer),
		Product:        lookup(desc.IProduct),
		SerialNumber:   lookup(desc.ISerialNumber),
		Configurations: make([]apitypes.Configuration, 0, len(d.Configurations)),
	}
	if d.Strings.Len() > 0 {
		out.Strings = d.Strings.Strings()
	}
	if len(d.Properties) > 0 {
		out.Properties = d.Properties
	}
	if raw {
		out.Raw = hex.EncodeToString(desc.Bytes())
	}
	for _, c := range d.Configurations {
		out.Configurations = append(out.Configurations, describeConfiguration(c, lookup, raw))
	}
	return out
}

func describeConfiguration(c *virtualbus.Configuration, lookup func(uint8) string, raw bool) apitypes.Configuration {
	desc := c.Descriptor
	out := apitypes.Configuration{
		Value:        desc.BConfigurationValue,
		Attributes:   fmt.Sprintf("0x%02x", desc.BMAttributes),
		SelfPowered:  desc.SelfPowered(),
		RemoteWakeup: desc.RemoteWakeup(),
		MaxPowerMA:   desc.MaxPowerMilliamps(),
		TotalLength:  desc.WTotalLength,
		Name:         lookup(desc.IConfiguration),
		Interfaces:   make([]apitypes.Interface, 0, len(c.Interfaces)),
	}
	if raw {
		out.Raw = hex.EncodeToString(c.Bytes())
	}
	for _, iface := range c.Interfaces {
		out.Interfaces = append(out.Interfaces, describeInterface(iface, lookup, raw))
	}
	return out
}

func describeInterface(iface *virtualbus.Interface, lookup func(uint8) string, raw bool) apitypes.Interface {
	desc := iface.Descriptor
	out := apitypes.Interface{
		Number:    desc.BInterfaceNumber,
		Class:     desc.BInterfaceClass,
		SubClass:  desc.BInterfaceSubClass,
		Protocol:  desc.BInterfaceProtocol,
		Name:      lookup(desc.IInterface),
		Endpoints: make([]apitypes.Endpoint, 0, len(iface.Endpoints)),
	}
	if raw {
		var b bytes.Buffer
		desc.Write(&b)
		out.Raw = hex.EncodeToString(b.Bytes())
	}
	for _, ep := range iface.Endpoints {
		out.Endpoints = append(out.Endpoints, describeEndpoint(ep.Descriptor, lookup, raw))
	}
	return out
}

func describeEndpoint(desc usb.EndpointDescriptor, lookup func(uint8) string, raw bool) apitypes.Endpoint {
	dir := "out"
	if desc.In() {
		dir = "in"
	}
	out := apitypes.Endpoint{
		Address:       fmt.Sprintf("0x%02x", desc.BEndpointAddress),
		Direction:     dir,
		Type:          desc.TransferType().String(),
		MaxPacketSize: desc.WMaxPacketSize,
		Interval:      desc.BInterval,
		Name:          lookup(desc.IEndpoint),
	}
	if raw {
		var b bytes.Buffer
		desc.Write(&b)
		out.Raw = hex.EncodeToString(b.Bytes())
	}
	return out
}
