package topology

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration wraps every failure returned by a load.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Structural and semantic failures. None of them are transient.
var (
	ErrMalformedDocument         = errors.New("malformed document")
	ErrUnknownField              = errors.New("unknown field")
	ErrInvalidEnumValue          = errors.New("invalid value")
	ErrInvalidEndpointNumber     = errors.New("invalid endpoint number")
	ErrMissingField              = errors.New("missing field")
	ErrUnsupportedAlternateCount = errors.New("unsupported alternative count")
	ErrInvalidInterfaceEntry     = errors.New("invalid interface entry")
	ErrDuplicateEntity           = errors.New("duplicate entity")
)

// Refinements; errors.Is matches both the refinement and its parent.
var (
	ErrInvalidSpeed        = fmt.Errorf("%w: device speed", ErrInvalidEnumValue)
	ErrInvalidDirection    = fmt.Errorf("%w: endpoint direction", ErrInvalidEnumValue)
	ErrInvalidEndpointType = fmt.Errorf("%w: endpoint type", ErrInvalidEnumValue)
	ErrInvalidFeature      = fmt.Errorf("%w: configuration feature", ErrInvalidEnumValue)

	ErrMissingDescriptor = fmt.Errorf("%w: descriptor", ErrMissingField)

	ErrDuplicateLocation      = fmt.Errorf("%w: device location", ErrDuplicateEntity)
	ErrDuplicateConfiguration = fmt.Errorf("%w: configuration", ErrDuplicateEntity)
	ErrDuplicateInterface     = fmt.Errorf("%w: interface", ErrDuplicateEntity)
	ErrDuplicateEndpoint      = fmt.Errorf("%w: endpoint", ErrDuplicateEntity)
)

func unknownField(key string, v Value) error {
	return fmt.Errorf("%w %q (line %d)", ErrUnknownField, key, v.Line)
}

func malformed(v Value, format string, args ...any) error {
	return fmt.Errorf("%w: %s (line %d)", ErrMalformedDocument, fmt.Sprintf(format, args...), v.Line)
}

func expectMapping(v Value, what string) error {
	if v.Kind != KindMapping {
		return malformed(v, "%s is a %s, not a mapping", what, v.Kind)
	}
	return nil
}

func expectSequence(v Value, what string) error {
	if v.Kind != KindSequence {
		return malformed(v, "%s is a %s, not a sequence", what, v.Kind)
	}
	return nil
}
