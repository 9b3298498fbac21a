package topology

import (
	"fmt"

	"github.com/Alia5/usbtopo/virtualbus"
)

type location struct {
	bus, address uint8
}

// Validate checks the uniqueness invariants that span sibling subtrees:
// device locations on the bus, configuration values within a device,
// interface numbers within a configuration and endpoint addresses within an
// interface. It returns the first violation found.
func Validate(devices []*virtualbus.Device) error {
	locations := make(map[location]struct{}, len(devices))
	for _, dev := range devices {
		loc := location{dev.Bus, dev.Address}
		if _, dup := locations[loc]; dup {
			return fmt.Errorf("%w: two devices on bus %d address %d", ErrDuplicateLocation, loc.bus, loc.address)
		}
		locations[loc] = struct{}{}
		if err := validateDevice(dev); err != nil {
			return fmt.Errorf("device %s: %w", dev, err)
		}
	}
	return nil
}

func validateDevice(dev *virtualbus.Device) error {
	values := make(map[uint8]struct{}, len(dev.Configurations))
	for _, cfg := range dev.Configurations {
		val := cfg.Descriptor.BConfigurationValue
		if _, dup := values[val]; dup {
			return fmt.Errorf("%w: configuration %d assigned twice", ErrDuplicateConfiguration, val)
		}
		values[val] = struct{}{}
		if err := validateConfiguration(cfg); err != nil {
			return fmt.Errorf("configuration %d: %w", val, err)
		}
	}
	return nil
}

func validateConfiguration(cfg *virtualbus.Configuration) error {
	numbers := make(map[uint8]struct{}, len(cfg.Interfaces))
	for _, iface := range cfg.Interfaces {
		num := iface.Descriptor.BInterfaceNumber
		if _, dup := numbers[num]; dup {
			return fmt.Errorf("%w: interface %d assigned twice", ErrDuplicateInterface, num)
		}
		numbers[num] = struct{}{}
		addrs := make(map[uint8]struct{}, len(iface.Endpoints))
		for _, ep := range iface.Endpoints {
			addr := ep.Descriptor.BEndpointAddress
			if _, dup := addrs[addr]; dup {
				return fmt.Errorf("interface %d: %w: EP 0x%02x assigned twice", num, ErrDuplicateEndpoint, addr)
			}
			addrs[addr] = struct{}{}
		}
	}
	return nil
}
