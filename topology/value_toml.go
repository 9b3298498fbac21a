package topology

import (
	"fmt"
	"io"
	"sort"

	"github.com/pelletier/go-toml"
)

// tomlDocument yields the single entry of a TOML document.
type tomlDocument struct {
	r    io.Reader
	done bool
}

func newTOMLDocument(r io.Reader) *tomlDocument {
	return &tomlDocument{r: r}
}

func (t *tomlDocument) Next() (Value, error) {
	if t.done {
		return Value{}, io.EOF
	}
	t.done = true
	return ParseTOML(t.r)
}

// ParseTOML parses a TOML document into a single mapping entry.
func ParseTOML(r io.Reader) (Value, error) {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return fromTOMLTree(tree), nil
}

// fromTOMLTree converts a table. TOML trees do not remember key order, so
// keys are ordered by their position in the source.
func fromTOMLTree(t *toml.Tree) Value {
	keys := t.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		pi := t.GetPositionPath([]string{keys[i]})
		pj := t.GetPositionPath([]string{keys[j]})
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		return pi.Col < pj.Col
	})
	v := Value{Kind: KindMapping, Line: t.Position().Line, Pairs: make([]Pair, 0, len(keys))}
	for _, k := range keys {
		path := []string{k}
		v.Pairs = append(v.Pairs, Pair{
			Key:   k,
			Value: fromTOMLAny(t.GetPath(path), t.GetPositionPath(path).Line),
		})
	}
	return v
}

func fromTOMLAny(x any, line int) Value {
	switch t := x.(type) {
	case nil:
		return Value{Kind: KindNull, Line: line}
	case *toml.Tree:
		return fromTOMLTree(t)
	case []*toml.Tree:
		v := Value{Kind: KindSequence, Line: line, Items: make([]Value, 0, len(t))}
		for _, sub := range t {
			v.Items = append(v.Items, fromTOMLTree(sub))
		}
		return v
	case []any:
		v := Value{Kind: KindSequence, Line: line, Items: make([]Value, 0, len(t))}
		for _, it := range t {
			v.Items = append(v.Items, fromTOMLAny(it, line))
		}
		return v
	case int64, float64, bool, string:
		return Value{Kind: KindScalar, Scalar: t, Line: line}
	default:
		// dates and times
		return Value{Kind: KindScalar, Scalar: fmt.Sprintf("%v", t), Line: line}
	}
}
