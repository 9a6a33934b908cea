package probe

import (
	"bytes"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pierrec/lz4/v3"
	"github.com/tinylib/msgp/msgp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeJSON renders a Description tree as JSON, matching the teacher's
// own stats package convention of aliasing jsoniter as the project's JSON
// encoder (SPEC_FULL.md §2).
func EncodeJSON(d Description) ([]byte, error) { return json.Marshal(d) }

func DecodeJSON(data []byte) (Description, error) {
	var d Description
	err := json.Unmarshal(data, &d)
	return d, err
}

// EncodeMsgpack renders a Description tree as MessagePack for callers
// that want a compact, off-process-shippable snapshot (SPEC_FULL.md §2).
// Hand-rolled against msgp's lower-level Append helpers rather than
// `msgp` codegen, since no Go source in this tree is generated.
func EncodeMsgpack(d Description) ([]byte, error) {
	return d.MarshalMsg(nil)
}

func DecodeMsgpack(data []byte) (Description, error) {
	var d Description
	_, err := d.UnmarshalMsg(data)
	return d, err
}

// MarshalMsg implements msgp.Marshaler.
func (d Description) MarshalMsg(b []byte) ([]byte, error) {
	hasAxon := d.Axon != nil
	o := msgp.AppendMapHeader(b, 5)
	o = msgp.AppendString(o, "soma_id")
	o = msgp.AppendString(o, d.SomaID)
	o = msgp.AppendString(o, "label")
	o = msgp.AppendString(o, d.Label)
	o = msgp.AppendString(o, "is_nucleus")
	o = msgp.AppendBool(o, d.IsNucleus)
	o = msgp.AppendString(o, "axon")
	if hasAxon {
		var err error
		o, err = d.Axon.marshal(o)
		if err != nil {
			return nil, err
		}
	} else {
		o = msgp.AppendNil(o)
	}
	o = msgp.AppendString(o, "children")
	o = msgp.AppendArrayHeader(o, uint32(len(d.Children)))
	for _, c := range d.Children {
		var err error
		o, err = c.MarshalMsg(o)
		if err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (a *AxonInfo) marshal(b []byte) ([]byte, error) {
	o := msgp.AppendMapHeader(b, 2)
	o = msgp.AppendString(o, "dendrites")
	var err error
	o, err = marshalConstraints(o, a.Dendrites)
	if err != nil {
		return nil, err
	}
	o = msgp.AppendString(o, "terminals")
	o, err = marshalConstraints(o, a.Terminals)
	return o, err
}

func marshalConstraints(b []byte, m map[string]ConstraintInfo) ([]byte, error) {
	o := msgp.AppendMapHeader(b, uint32(len(m)))
	for k, v := range m {
		o = msgp.AppendString(o, k)
		o = msgp.AppendMapHeader(o, 3)
		o = msgp.AppendString(o, "constraint")
		o = msgp.AppendString(o, string(v.Constraint))
		o = msgp.AppendString(o, "met")
		o = msgp.AppendBool(o, v.Met)
		o = msgp.AppendString(o, "peers")
		o = msgp.AppendArrayHeader(o, uint32(len(v.Peers)))
		for _, p := range v.Peers {
			o = msgp.AppendString(o, p)
		}
	}
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (d *Description) UnmarshalMsg(b []byte) ([]byte, error) {
	n, o, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	for range n {
		var field string
		field, o, err = msgp.ReadStringBytes(o)
		if err != nil {
			return nil, err
		}
		switch field {
		case "soma_id":
			d.SomaID, o, err = msgp.ReadStringBytes(o)
		case "label":
			d.Label, o, err = msgp.ReadStringBytes(o)
		case "is_nucleus":
			d.IsNucleus, o, err = msgp.ReadBoolBytes(o)
		case "axon":
			if msgp.IsNil(o) {
				o = o[msgp.NilSize:]
				d.Axon = nil
			} else {
				d.Axon = &AxonInfo{}
				o, err = d.Axon.unmarshal(o)
			}
		case "children":
			var cn uint32
			cn, o, err = msgp.ReadArrayHeaderBytes(o)
			if err != nil {
				return nil, err
			}
			d.Children = make([]Description, cn)
			for i := range d.Children {
				o, err = d.Children[i].UnmarshalMsg(o)
				if err != nil {
					return nil, err
				}
			}
		default:
			o, err = msgp.Skip(o)
		}
		if err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (a *AxonInfo) unmarshal(b []byte) ([]byte, error) {
	n, o, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	for range n {
		var field string
		field, o, err = msgp.ReadStringBytes(o)
		if err != nil {
			return nil, err
		}
		var m map[string]ConstraintInfo
		m, o, err = unmarshalConstraints(o)
		if err != nil {
			return nil, err
		}
		switch field {
		case "dendrites":
			a.Dendrites = m
		case "terminals":
			a.Terminals = m
		}
	}
	return o, nil
}

func unmarshalConstraints(b []byte) (map[string]ConstraintInfo, []byte, error) {
	n, o, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, nil, err
	}
	m := make(map[string]ConstraintInfo, n)
	for range n {
		var key string
		key, o, err = msgp.ReadStringBytes(o)
		if err != nil {
			return nil, nil, err
		}
		var fn uint32
		fn, o, err = msgp.ReadMapHeaderBytes(o)
		if err != nil {
			return nil, nil, err
		}
		var ci ConstraintInfo
		for range fn {
			var f string
			f, o, err = msgp.ReadStringBytes(o)
			if err != nil {
				return nil, nil, err
			}
			switch f {
			case "constraint":
				var s string
				s, o, err = msgp.ReadStringBytes(o)
				ci.Constraint = ConstraintKind(s)
			case "met":
				ci.Met, o, err = msgp.ReadBoolBytes(o)
			case "peers":
				var pn uint32
				pn, o, err = msgp.ReadArrayHeaderBytes(o)
				if err != nil {
					return nil, nil, err
				}
				ci.Peers = make([]string, pn)
				for i := range ci.Peers {
					ci.Peers[i], o, err = msgp.ReadStringBytes(o)
					if err != nil {
						return nil, nil, err
					}
				}
			}
			if err != nil {
				return nil, nil, err
			}
		}
		m[key] = ci
	}
	return m, o, nil
}

// Compress lz4-compresses an already-encoded snapshot when it is at least
// threshold bytes long, mirroring transport.Extra.Compression/CompressAlways
// from the teacher's stream layer (SPEC_FULL.md §2) — applied here to a
// probe payload instead of an object stream. Returns (data, false) and
// the input verbatim when below threshold.
func Compress(data []byte, threshold int) (out []byte, compressed bool, err error) {
	if len(data) < threshold {
		return data, false, nil
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err = zw.Write(data); err != nil {
		return nil, false, err
	}
	if err = zw.Close(); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

func Decompress(data []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(zr)
}
