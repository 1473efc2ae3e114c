package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aelys-lang/aelys/lang/heap"
	"github.com/aelys-lang/aelys/lang/value"
)

func TestInstrEncoding(t *testing.T) {
	i := ABC(OpAddII, 1, 2, 3)
	require.Equal(t, OpAddII, i.Op())
	require.Equal(t, uint8(1), i.A())
	require.Equal(t, uint8(2), i.B())
	require.Equal(t, uint8(3), i.C())

	j := ABx(OpJmp, 0, -7)
	require.Equal(t, OpJmp, j.Op())
	require.Equal(t, int16(-7), j.Imm16())
}

func simpleFn() *Function {
	fn := &Function{
		Name:         "main",
		NumRegisters: 2,
		Constants:    []value.Value{value.Int(41), value.Int(1)},
		Code: []Instr{
			ABC(OpLoadK, 0, 0, 0),
			ABC(OpLoadK, 1, 1, 0),
			ABC(OpAddII, 0, 0, 1),
			ABC(OpReturn, 0, 0, 0),
		},
	}
	fn.Globals = GlobalLayout{Names: nil, Hash: HashLayout(nil)}
	return fn
}

func TestVerifyAccepts(t *testing.T) {
	fn := simpleFn()
	require.NoError(t, Verify(fn))
	require.True(t, fn.Verified)
}

func TestVerifyRejectsOutOfRangeRegister(t *testing.T) {
	fn := simpleFn()
	fn.Code[2] = ABC(OpAddII, 9, 0, 1) // register 9 >= num_registers(2)
	err := Verify(fn)
	require.Error(t, err)
}

func TestVerifyRejectsBadJumpTarget(t *testing.T) {
	fn := simpleFn()
	fn.Code = append(fn.Code, ABx(OpJmp, 0, 100))
	err := Verify(fn)
	require.Error(t, err)
}

func TestVerifyRequiresCacheWordsAfterCall(t *testing.T) {
	fn := &Function{
		NumRegisters: 2,
		Globals:      GlobalLayout{Names: []string{"f"}, Hash: HashLayout([]string{"f"})},
		Code: []Instr{
			ABC(OpCallGlobal, 0, 0, 0),
			// missing two cache words
		},
	}
	err := Verify(fn)
	require.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fn := simpleFn()
	require.NoError(t, Verify(fn))

	h := heap.New(0)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, fn, h))

	got, err := Decode(&buf, heap.New(0))
	require.NoError(t, err)
	require.Equal(t, fn.Name, got.Name)
	require.Equal(t, fn.Code, got.Code)
	require.Equal(t, len(fn.Constants), len(got.Constants))
	for i := range fn.Constants {
		require.True(t, fn.Constants[i].Equal(got.Constants[i]))
	}
}

// TestEncodeDecodeRoundTripStringAndNestedFunctionConstants covers the two
// heap-backed constant kinds lang/compiler actually produces (interned
// strings and nested-function references for closures), which simpleFn's
// all-scalar constant pool above doesn't exercise.
func TestEncodeDecodeRoundTripStringAndNestedFunctionConstants(t *testing.T) {
	h := heap.New(0)

	nested := &Function{
		Name:         "<lambda>",
		Arity:        1,
		NumRegisters: 1,
		Code:         []Instr{ABC(OpReturn, 0, 0, 0)},
		Globals:      GlobalLayout{Hash: HashLayout(nil)},
	}
	fnVal, err := h.NewFunction(&heap.Function{Name: nested.Name, Arity: nested.Arity, NumRegisters: nested.NumRegisters, Code: nested})
	require.NoError(t, err)
	strVal, err := h.InternString("hello")
	require.NoError(t, err)

	fn := &Function{
		Name:         "main",
		NumRegisters: 2,
		Constants:    []value.Value{strVal, fnVal},
		Code: []Instr{
			ABC(OpLoadK, 0, 0, 0),
			ABC(OpLoadK, 1, 1, 0),
			ABC(OpReturn, 0, 0, 0),
		},
		Nested:  []*Function{nested},
		Globals: GlobalLayout{Hash: HashLayout(nil)},
	}
	require.NoError(t, Verify(fn))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, fn, h))

	h2 := heap.New(0)
	got, err := Decode(&buf, h2)
	require.NoError(t, err)
	require.Len(t, got.Constants, 2)
	require.Len(t, got.Nested, 1)

	gotStrRef, ok := got.Constants[0].AsPtr()
	require.True(t, ok)
	gotStrObj, err := h2.Get(gotStrRef)
	require.NoError(t, err)
	require.Equal(t, "hello", gotStrObj.Str)

	gotFnRef, ok := got.Constants[1].AsPtr()
	require.True(t, ok)
	gotFnObj, err := h2.Get(gotFnRef)
	require.NoError(t, err)
	require.Equal(t, got.Nested[0], gotFnObj.Fn.Code)
}

func TestHashLayoutStableAndSensitive(t *testing.T) {
	h1 := HashLayout([]string{"a", "b"})
	h2 := HashLayout([]string{"a", "b"})
	h3 := HashLayout([]string{"b", "a"})
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
}
