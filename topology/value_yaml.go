package topology

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

type yamlDocuments struct {
	dec *yaml.Decoder
}

func newYAMLDocuments(r io.Reader) *yamlDocuments {
	return &yamlDocuments{dec: yaml.NewDecoder(r)}
}

func (y *yamlDocuments) Next() (Value, error) {
	var doc yaml.Node
	if err := y.dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.EOF
		}
		return Value{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return fromYAMLNode(&doc)
}

// ParseYAML parses every document of a YAML stream.
func ParseYAML(r io.Reader) ([]Value, error) {
	docs := newYAMLDocuments(r)
	var out []Value
	for {
		v, err := docs.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func fromYAMLNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Value{Kind: KindNull, Line: n.Line}, nil
		}
		return fromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return Value{}, fmt.Errorf("%w: dangling alias (line %d)", ErrMalformedDocument, n.Line)
		}
		return fromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		v := Value{Kind: KindSequence, Line: n.Line, Items: make([]Value, 0, len(n.Content))}
		for _, c := range n.Content {
			item, err := fromYAMLNode(c)
			if err != nil {
				return Value{}, err
			}
			v.Items = append(v.Items, item)
		}
		return v, nil
	case yaml.MappingNode:
		v := Value{Kind: KindMapping, Line: n.Line, Pairs: make([]Pair, 0, len(n.Content)/2)}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, val := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("%w: mapping key is a %s (line %d)", ErrMalformedDocument, yamlKindName(k.Kind), k.Line)
			}
			item, err := fromYAMLNode(val)
			if err != nil {
				return Value{}, err
			}
			v.Pairs = append(v.Pairs, Pair{Key: k.Value, Value: item})
		}
		return v, nil
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	default:
		return Value{}, fmt.Errorf("%w: unexpected %s (line %d)", ErrMalformedDocument, yamlKindName(n.Kind), n.Line)
	}
}

func fromYAMLScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Value{Kind: KindNull, Line: n.Line}, nil
	case "!!int", "!!float", "!!bool":
		var raw any
		if err := n.Decode(&raw); err != nil {
			return Value{}, fmt.Errorf("%w: %w (line %d)", ErrMalformedDocument, err, n.Line)
		}
		s, err := normalizeScalar(raw)
		if err != nil {
			return Value{}, fmt.Errorf("%w (line %d)", err, n.Line)
		}
		return Value{Kind: KindScalar, Scalar: s, Line: n.Line}, nil
	default:
		// strings, timestamps and anything custom-tagged are kept verbatim
		return Value{Kind: KindScalar, Scalar: n.Value, Line: n.Line}, nil
	}
}

func normalizeScalar(raw any) (any, error) {
	switch x := raw.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("%w: integer %d out of range", ErrMalformedDocument, x)
		}
		return int64(x), nil
	case float64, bool, string:
		return x, nil
	default:
		return fmt.Sprintf("%v", x), nil
	}
}

func yamlKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
