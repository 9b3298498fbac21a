// Package topology compiles a declarative virtual USB bus description into
// devices registered on a virtualbus.Backend.
//
// A document is a stream of entries. Each entry is a mapping whose "devices"
// key lists device definitions:
//
//	devices:
//	  - bus: 1
//	    address: 2
//	    descriptor: {vid: 0x403, pid: 0x6014, usb: 0x200}
//	    configurations:
//	      - descriptor: {maxpower: 100, attributes: [selfpowered]}
//	        interfaces:
//	          - alternatives:
//	              - descriptor: {class: 0xff}
//	                endpoints:
//	                  - descriptor: {number: 1, direction: in}
//	                  - descriptor: {number: 2, direction: out}
//
// Every entry replaces the devices registered by the previous one.
package topology

import (
	"fmt"
	"strings"
)

// Kind is the shape of a document Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a node of a parsed document, independent of the source format.
//
// Scalar holds one of bool, int64, float64 or string.
// Mapping pairs keep their document order.
type Value struct {
	Kind   Kind
	Scalar any
	Items  []Value
	Pairs  []Pair
	Line   int
}

// Pair is one key/value entry of a mapping.
type Pair struct {
	Key   string
	Value Value
}

// Get looks a mapping key up, case-insensitively.
func (v Value) Get(key string) (Value, bool) {
	for _, p := range v.Pairs {
		if strings.EqualFold(p.Key, key) {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Empty reports whether v is null, or a mapping or sequence without entries.
func (v Value) Empty() bool {
	switch v.Kind {
	case KindNull:
		return true
	case KindMapping:
		return len(v.Pairs) == 0
	case KindSequence:
		return len(v.Items) == 0
	default:
		return false
	}
}

// Interface converts v to plain Go values: map[string]any, []any or the scalar.
func (v Value) Interface() any {
	switch v.Kind {
	case KindScalar:
		return v.Scalar
	case KindSequence:
		out := make([]any, len(v.Items))
		for i, it := range v.Items {
			out[i] = it.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.Pairs))
		for _, p := range v.Pairs {
			out[p.Key] = p.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindScalar:
		return fmt.Sprintf("%v", v.Scalar)
	default:
		return v.Kind.String()
	}
}

// documentSource yields the top-level entries of a document stream.
// Next returns io.EOF once the stream is exhausted.
type documentSource interface {
	Next() (Value, error)
}
