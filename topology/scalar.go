package topology

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/Alia5/usbtopo/usb"
)

// asUint reads an unsigned integer that must fit T. Numeric strings
// ("0x0403", "512") are accepted as well.
func asUint[T constraints.Unsigned](v Value) (T, error) {
	limit := uint64(^T(0))
	if v.Kind != KindScalar {
		return 0, malformed(v, "expected an integer, got a %s", v.Kind)
	}
	var n uint64
	switch x := v.Scalar.(type) {
	case int64:
		if x < 0 {
			return 0, malformed(v, "negative value %d", x)
		}
		n = uint64(x)
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(x), 0, 64)
		if err != nil {
			return 0, malformed(v, "expected an integer, got %q", x)
		}
		n = parsed
	default:
		return 0, malformed(v, "expected an integer, got %v", x)
	}
	if n > limit {
		return 0, malformed(v, "value %d out of range [0, %d]", n, limit)
	}
	return T(n), nil
}

// asInt reads a strict integer: numeric strings are rejected.
func asInt(v Value) (int64, bool) {
	if v.Kind != KindScalar {
		return 0, false
	}
	n, ok := v.Scalar.(int64)
	return n, ok
}

func asString(v Value) (string, bool) {
	if v.Kind != KindScalar {
		return "", false
	}
	s, ok := v.Scalar.(string)
	return s, ok
}

// asBool coerces the usual spellings of a flag. A null value is false.
func asBool(v Value) (bool, error) {
	switch v.Kind {
	case KindNull:
		return false, nil
	case KindScalar:
	default:
		return false, malformed(v, "expected a flag, got a %s", v.Kind)
	}
	switch x := v.Scalar.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: flag %q (line %d)", ErrInvalidEnumValue, v.String(), v.Line)
}

// asStringRef resolves a string descriptor reference: integers are taken as
// indices, text is interned into the device string table.
func asStringRef(v Value, strs *usb.StringTable) (uint8, error) {
	if s, ok := asString(v); ok {
		if _, err := strconv.ParseUint(s, 0, 8); err != nil {
			idx, err := strs.Intern(s)
			if err != nil {
				return 0, fmt.Errorf("%w (line %d)", err, v.Line)
			}
			return idx, nil
		}
	}
	return asUint[uint8](v)
}
