package msbc

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/ColtMcG1/Mainstage/internal/ir"
	"github.com/ColtMcG1/Mainstage/internal/merr"
)

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putString(buf []byte, s string) []byte {
	buf = putU32(buf, uint32(len(s)))
	return append(buf, []byte(s)...)
}

func encodeValue(buf []byte, v ir.Value) []byte {
	switch v.Kind {
	case ir.KindInt:
		buf = append(buf, tagInt)
		buf = putU64(buf, uint64(v.Int))
	case ir.KindFloat:
		buf = append(buf, tagFloat)
		buf = putU64(buf, math.Float64bits(v.Float))
	case ir.KindBool:
		buf = append(buf, tagBool)
		if v.Bool {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case ir.KindStr:
		buf = append(buf, tagStr)
		buf = putString(buf, v.Str)
	case ir.KindSymbol:
		buf = append(buf, tagSymbol)
		buf = putString(buf, v.Str)
	case ir.KindArray:
		buf = append(buf, tagArray)
		buf = putU32(buf, uint32(len(v.Array)))
		for _, e := range v.Array {
			buf = encodeValue(buf, e)
		}
	case ir.KindNull:
		buf = append(buf, tagNull)
	case ir.KindObject:
		buf = append(buf, tagObject)
		keys := make([]string, 0, len(v.Object))
		for k := range v.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys) // deterministic emission (§4.3)
		buf = putU32(buf, uint32(len(keys)))
		for _, k := range keys {
			buf = putString(buf, k)
			buf = encodeValue(buf, v.Object[k])
		}
	}
	return buf
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) u32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, &merr.LoadError{Offset: r.pos, Reason: "truncated u32"}
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, &merr.LoadError{Offset: r.pos, Reason: "truncated u64"}
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) byte() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, &merr.LoadError{Offset: r.pos, Reason: "truncated byte"}
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) string() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.data) {
		return "", &merr.LoadError{Offset: r.pos, Reason: "truncated string"}
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func decodeValue(r *reader) (ir.Value, error) {
	tag, err := r.byte()
	if err != nil {
		return ir.Value{}, err
	}
	switch tag {
	case tagInt:
		v, err := r.u64()
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Int(int64(v)), nil
	case tagFloat:
		v, err := r.u64()
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Float(math.Float64frombits(v)), nil
	case tagBool:
		b, err := r.byte()
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Bool(b != 0), nil
	case tagStr:
		s, err := r.string()
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Str(s), nil
	case tagSymbol:
		s, err := r.string()
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Symbol(s), nil
	case tagArray:
		n, err := r.u32()
		if err != nil {
			return ir.Value{}, err
		}
		elems := make([]ir.Value, n)
		for i := range elems {
			elems[i], err = decodeValue(r)
			if err != nil {
				return ir.Value{}, err
			}
		}
		return ir.Arr(elems), nil
	case tagNull:
		return ir.Null(), nil
	case tagObject:
		n, err := r.u32()
		if err != nil {
			return ir.Value{}, err
		}
		obj := make(map[string]ir.Value, n)
		for i := uint32(0); i < n; i++ {
			k, err := r.string()
			if err != nil {
				return ir.Value{}, err
			}
			v, err := decodeValue(r)
			if err != nil {
				return ir.Value{}, err
			}
			obj[k] = v
		}
		return ir.Obj(obj), nil
	}
	return ir.Value{}, &merr.LoadError{Offset: r.pos - 1, Reason: fmt.Sprintf("unknown value tag 0x%02x", tag)}
}
