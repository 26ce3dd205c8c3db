package settings

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Compact wire form of a Node, used for settings snapshots.
type wireNode struct {
	Name     string     `cbor:"1,keyasint"`
	Props    []wireProp `cbor:"2,keyasint,omitempty"`
	Children []wireNode `cbor:"3,keyasint,omitempty"`
}

type wireProp struct {
	Name string  `cbor:"1,keyasint"`
	Str  *string `cbor:"2,keyasint,omitempty"`
	Int  *int64  `cbor:"3,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("settings: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("settings: cbor decoder mode: %v", err))
	}
}

func toWire(n *Node) wireNode {
	w := wireNode{Name: n.Name}
	for _, p := range n.props {
		wp := wireProp{Name: p.Name}
		switch p.Type {
		case TypeInt:
			v := int64(p.Int)
			wp.Int = &v
		default:
			v := p.Str
			wp.Str = &v
		}
		w.Props = append(w.Props, wp)
	}
	for _, c := range n.Children {
		w.Children = append(w.Children, toWire(c))
	}
	return w
}

func fromWire(w wireNode) (*Node, error) {
	n, err := NewNode(w.Name)
	if err != nil {
		return nil, err
	}
	for _, p := range w.Props {
		switch {
		case p.Str != nil && p.Int == nil:
			err = n.SetString(p.Name, *p.Str)
		case p.Int != nil && p.Str == nil:
			err = n.SetInt(p.Name, int(*p.Int))
		default:
			err = fmt.Errorf("%w: %s.%s needs exactly one value", ErrInvalid, w.Name, p.Name)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, c := range w.Children {
		cn, err := fromWire(c)
		if err != nil {
			return nil, err
		}
		n.AddChild(cn)
	}
	return n, nil
}

// EncodeCBOR encodes n into a deterministic CBOR snapshot.
func EncodeCBOR(n *Node) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: nil node", ErrInvalid)
	}
	return encMode.Marshal(toWire(n))
}

// DecodeCBOR decodes a snapshot produced by EncodeCBOR.
func DecodeCBOR(data []byte) (*Node, error) {
	var w wireNode
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return fromWire(w)
}
