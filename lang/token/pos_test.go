package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileLineCol(t *testing.T) {
	f := NewFile("test", []byte("ab\ncd\nef"))
	f.AddLine(3)
	f.AddLine(6)

	cases := []struct {
		pos      Pos
		line, col int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{4, 2, 2},
		{6, 3, 1},
	}
	for _, c := range cases {
		line, col := f.LineCol(c.pos)
		require.Equal(t, c.line, line)
		require.Equal(t, c.col, col)
	}
}

func TestFileLineText(t *testing.T) {
	f := NewFile("test", []byte("ab\ncd\nef"))
	f.AddLine(3)
	f.AddLine(6)

	require.Equal(t, "ab", f.LineText(0))
	require.Equal(t, "cd", f.LineText(3))
	require.Equal(t, "ef", f.LineText(6))
}

func TestSpanUnion(t *testing.T) {
	f := NewFile("test", []byte("abcdef"))
	a := Span{File: f, Lo: 1, Hi: 2}
	b := Span{File: f, Lo: 3, Hi: 5}
	u := Union(a, b)
	require.Equal(t, Pos(1), u.Lo)
	require.Equal(t, Pos(5), u.Hi)

	require.Equal(t, b, Union(Span{}, b))
	require.Equal(t, a, Union(a, Span{}))
}

func TestFileSet(t *testing.T) {
	fs := NewFileSet()
	f0 := fs.AddFile("a", []byte("x"))
	f1 := fs.AddFile("b", []byte("yy"))
	require.Equal(t, []*File{f0, f1}, fs.Files())
	require.Equal(t, "a", f0.Name())
	require.Equal(t, 2, f1.Size())
}
