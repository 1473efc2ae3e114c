package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

// Magic identifies the binary bytecode envelope (spec §6): little-endian,
// magic "VBXQ".
var Magic = [4]byte{'V', 'B', 'X', 'Q'}

// constant tags for the serialized constant pool.
const (
	ctInt byte = iota
	ctFloat
	ctBool
	ctNull
	ctString
	ctFunction
)

// Encode writes fn to w using the binary bytecode envelope described in
// spec §6. h is the heap fn's Ptr constants were allocated from: string
// constants are written inline by content (heap identity is
// re-established by interning on load) and nested-function constants are
// written as an index into the enclosing Function's own Nested list (the
// same heap Function object a closure's OpMakeClosure/OpLoadK addresses),
// so the envelope is self-contained and needs no other heap context to
// reconstitute.
func Encode(w io.Writer, fn *Function, h *heap.Heap) error {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	if err := encodeFunction(&buf, fn, h); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func encodeFunction(buf *bytes.Buffer, fn *Function, h *heap.Heap) error {
	if len(fn.Name) > 0xffff {
		return fmt.Errorf("encode: function name too long")
	}
	if len(fn.Constants) > MaxConstants {
		return fmt.Errorf("encode: constant_count exceeds %d", MaxConstants)
	}
	if len(fn.Nested) > MaxNested {
		return fmt.Errorf("encode: nested_count exceeds %d", MaxNested)
	}

	writeU16(buf, uint16(len(fn.Name)))
	buf.WriteString(fn.Name)
	buf.WriteByte(byte(fn.Arity))
	buf.WriteByte(byte(fn.NumRegisters))

	writeU16(buf, uint16(len(fn.Constants)))
	for _, c := range fn.Constants {
		if err := encodeConstant(buf, c, h, fn.Nested); err != nil {
			return err
		}
	}

	writeU32(buf, uint32(len(fn.Code)))
	for _, instr := range fn.Code {
		writeU32(buf, uint32(instr))
	}

	writeU16(buf, uint16(len(fn.Upvalues)))
	for _, uv := range fn.Upvalues {
		b := byte(0)
		if uv.IsLocal {
			b = 1
		}
		buf.WriteByte(b)
		buf.WriteByte(uv.Index)
	}

	writeU16(buf, uint16(len(fn.Lines)))
	for _, span := range fn.Lines {
		lo, hi := uint32(0), uint32(0)
		if span.IsValid() {
			lo, hi = uint32(span.Lo), uint32(span.Hi)
		}
		writeU32(buf, lo)
		writeU32(buf, hi)
	}

	writeU32(buf, uint32(len(fn.Nested)))
	for _, nested := range fn.Nested {
		if err := encodeFunction(buf, nested, h); err != nil {
			return err
		}
	}
	return nil
}

// encodeConstant writes one constant pool entry. A Ptr constant is either a
// heap String (written inline by content) or a heap Function wrapping one
// of fn's own Nested entries (written as that entry's index, by pointer
// identity): those are the only two heap kinds lang/compiler ever places in
// a constant pool (see addConstant's call sites).
func encodeConstant(buf *bytes.Buffer, v value.Value, h *heap.Heap, nested []*Function) error {
	switch v.Kind() {
	case value.KindInt:
		buf.WriteByte(ctInt)
		i, _ := v.AsInt()
		writeU64(buf, uint64(i))
	case value.KindFloat:
		buf.WriteByte(ctFloat)
		f, _ := v.AsFloat()
		writeU64(buf, float64Bits(f))
	case value.KindBool:
		buf.WriteByte(ctBool)
		b, _ := v.AsBool()
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case value.KindNull:
		buf.WriteByte(ctNull)
	case value.KindPtr:
		ref, _ := v.AsPtr()
		obj, err := h.Get(ref)
		if err != nil {
			return fmt.Errorf("encode: constant %v: %w", ref, err)
		}
		switch obj.Kind {
		case heap.KindString:
			buf.WriteByte(ctString)
			writeU32(buf, uint32(len(obj.Str)))
			buf.WriteString(obj.Str)
		case heap.KindFunction:
			idx, ok := nestedIndex(obj, nested)
			if !ok {
				return fmt.Errorf("encode: function constant does not match any of the function's own Nested entries")
			}
			buf.WriteByte(ctFunction)
			writeU32(buf, uint32(idx))
		default:
			return fmt.Errorf("encode: constant heap kind %s cannot be serialized", obj.Kind)
		}
	default:
		return fmt.Errorf("encode: constant kind %v cannot be serialized", v.Kind())
	}
	return nil
}

func nestedIndex(obj *heap.Object, nested []*Function) (int, bool) {
	for i, n := range nested {
		if obj.Fn.Code.(*Function) == n {
			return i, true
		}
	}
	return 0, false
}

// Decode reads a Function from the binary bytecode envelope, interning any
// string constants and rebuilding any nested-function constants into h.
func Decode(r io.Reader, h *heap.Heap) (*Function, error) {
	br := &byteReader{r: r}
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("decode: bad magic %q", magic)
	}
	return decodeFunction(br, h)
}

// pendingFnConstant marks a constant pool slot that names a nested-function
// index rather than carrying a ready value.Value: the Nested list is only
// available once the whole record has been read, so decodeFunction patches
// these in as its last step.
type pendingFnConstant struct {
	slot      int
	nestedIdx int
}

func decodeFunction(br *byteReader, h *heap.Heap) (*Function, error) {
	nameLen, err := br.u16()
	if err != nil {
		return nil, err
	}
	name, err := br.bytes(int(nameLen))
	if err != nil {
		return nil, err
	}
	arity, err := br.u8()
	if err != nil {
		return nil, err
	}
	numRegs, err := br.u8()
	if err != nil {
		return nil, err
	}

	constCount, err := br.u16()
	if err != nil {
		return nil, err
	}
	if int(constCount) > MaxConstants {
		return nil, fmt.Errorf("decode: constant_count %d exceeds cap", constCount)
	}
	consts := make([]value.Value, constCount)
	var pending []pendingFnConstant
	for i := range consts {
		consts[i], err = decodeConstant(br, h, i, &pending)
		if err != nil {
			return nil, err
		}
	}

	codeLen, err := br.u32()
	if err != nil {
		return nil, err
	}
	code := make([]Instr, codeLen)
	for i := range code {
		w, err := br.u32()
		if err != nil {
			return nil, err
		}
		code[i] = Instr(w)
	}

	uvCount, err := br.u16()
	if err != nil {
		return nil, err
	}
	upvalues := make([]UpvalueDesc, uvCount)
	for i := range upvalues {
		isLocal, err := br.u8()
		if err != nil {
			return nil, err
		}
		idx, err := br.u8()
		if err != nil {
			return nil, err
		}
		upvalues[i] = UpvalueDesc{IsLocal: isLocal != 0, Index: idx}
	}

	lineCount, err := br.u16()
	if err != nil {
		return nil, err
	}
	lines := make([]struct{ Lo, Hi uint32 }, lineCount)
	for i := range lines {
		lo, err := br.u32()
		if err != nil {
			return nil, err
		}
		hi, err := br.u32()
		if err != nil {
			return nil, err
		}
		lines[i] = struct{ Lo, Hi uint32 }{lo, hi}
	}

	nestedCount, err := br.u32()
	if err != nil {
		return nil, err
	}
	if nestedCount > MaxNested {
		return nil, fmt.Errorf("decode: nested_count %d exceeds cap", nestedCount)
	}
	nested := make([]*Function, nestedCount)
	for i := range nested {
		nested[i], err = decodeFunction(br, h)
		if err != nil {
			return nil, err
		}
	}

	for _, p := range pending {
		if p.nestedIdx >= len(nested) {
			return nil, fmt.Errorf("decode: function constant references nested index %d, only %d nested", p.nestedIdx, len(nested))
		}
		child := nested[p.nestedIdx]
		v, err := h.NewFunction(&heap.Function{
			Name:         child.Name,
			Arity:        child.Arity,
			NumRegisters: child.NumRegisters,
			Code:         child,
		})
		if err != nil {
			return nil, fmt.Errorf("decode: rebuild function constant %d: %w", p.slot, err)
		}
		consts[p.slot] = v
	}

	fn := &Function{
		Name:         name,
		Arity:        int(arity),
		NumRegisters: int(numRegs),
		Code:         code,
		Constants:    consts,
		Upvalues:     upvalues,
		Nested:       nested,
	}
	_ = lines // spans require a *token.File to reconstitute; caller re-attaches via compile metadata
	return fn, nil
}

func decodeConstant(br *byteReader, h *heap.Heap, slot int, pending *[]pendingFnConstant) (value.Value, error) {
	tag, err := br.u8()
	if err != nil {
		return value.Value{}, err
	}
	switch tag {
	case ctInt:
		u, err := br.u64()
		return value.Int(int64(u)), err
	case ctFloat:
		u, err := br.u64()
		return value.Float(float64FromBits(u)), err
	case ctBool:
		b, err := br.u8()
		return value.Bool(b != 0), err
	case ctNull:
		return value.Null, nil
	case ctString:
		n, err := br.u32()
		if err != nil {
			return value.Value{}, err
		}
		s, err := br.bytes(int(n))
		if err != nil {
			return value.Value{}, err
		}
		return h.InternString(s)
	case ctFunction:
		idx, err := br.u32()
		if err != nil {
			return value.Value{}, err
		}
		*pending = append(*pending, pendingFnConstant{slot: slot, nestedIdx: int(idx)})
		return value.Null, nil // patched once Nested is decoded, below
	default:
		return value.Value{}, fmt.Errorf("decode: unknown constant tag %d", tag)
	}
}

func writeU16(buf *bytes.Buffer, v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); buf.Write(b[:]) }
func writeU32(buf *bytes.Buffer, v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); buf.Write(b[:]) }
func writeU64(buf *bytes.Buffer, v uint64) { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); buf.Write(b[:]) }
