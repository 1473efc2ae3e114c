package token

import "fmt"

// Pos is a byte offset into a File. The zero value means "unknown".
type Pos int

// Span is the source-position data model: a compact (file, lo, hi) triple
// identifying a byte range, carried on every AST node, instruction, and
// diagnostic.
type Span struct {
	File   *File
	Lo, Hi Pos
}

// IsValid reports whether the span refers to a real range.
func (s Span) IsValid() bool { return s.File != nil }

// String renders the span as "file:line:col".
func (s Span) String() string {
	if !s.IsValid() {
		return "<unknown>"
	}
	line, col := s.File.LineCol(s.Lo)
	return fmt.Sprintf("%s:%d:%d", s.File.Name(), line, col)
}

// Union returns the smallest span covering both a and b. Both must belong to
// the same file.
func Union(a, b Span) Span {
	if !a.IsValid() {
		return b
	}
	if !b.IsValid() {
		return a
	}
	lo, hi := a.Lo, a.Hi
	if b.Lo < lo {
		lo = b.Lo
	}
	if b.Hi > hi {
		hi = b.Hi
	}
	return Span{File: a.File, Lo: lo, Hi: hi}
}

// File tracks the byte-offset-to-line/column mapping for a single source
// file. Unlike the teacher's single-Pos-encodes-everything scheme, spans
// here carry explicit byte offsets so the bytecode's line table (spec §3)
// can map an instruction back to an exact source range rather than a single
// point.
type File struct {
	name  string
	src   []byte
	lines []Pos // offsets of line starts, lines[0] == 0
}

// NewFile creates a File wrapping the given name and source bytes.
func NewFile(name string, src []byte) *File {
	return &File{name: name, src: src, lines: []Pos{0}}
}

// Name returns the file's name.
func (f *File) Name() string { return f.name }

// Size returns the length of the source in bytes.
func (f *File) Size() int { return len(f.src) }

// Bytes returns the raw source bytes. Callers must not modify the slice.
func (f *File) Bytes() []byte { return f.src }

// AddLine records that a new line starts at the given byte offset. Offsets
// must be added in increasing order; duplicate or out-of-order offsets are
// ignored.
func (f *File) AddLine(offset int) {
	if n := len(f.lines); n == 0 || f.lines[n-1] < Pos(offset) {
		f.lines = append(f.lines, Pos(offset))
	}
}

// LineCol returns the 1-based line and column for a byte offset.
func (f *File) LineCol(p Pos) (line, col int) {
	lo, hi := 0, len(f.lines)
	for lo < hi {
		mid := (lo + hi) / 2
		if f.lines[mid] <= p {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	line = lo
	col = int(p-f.lines[lo-1]) + 1
	return line, col
}

// Text returns the source text covered by the span lo:hi.
func (f *File) Text(lo, hi Pos) string {
	if int(hi) > len(f.src) {
		hi = Pos(len(f.src))
	}
	if lo < 0 {
		lo = 0
	}
	return string(f.src[lo:hi])
}

// LineText returns the full line of source text containing p, stripped of
// its trailing newline, used to render diagnostic excerpts.
func (f *File) LineText(p Pos) string {
	line, _ := f.LineCol(p)
	start := f.lines[line-1]
	end := Pos(len(f.src))
	if line < len(f.lines) {
		end = f.lines[line]
	}
	text := f.src[start:end]
	for len(text) > 0 && (text[len(text)-1] == '\n' || text[len(text)-1] == '\r') {
		text = text[:len(text)-1]
	}
	return string(text)
}

// FileSet holds every File belonging to a single compilation.
type FileSet struct {
	files []*File
}

// NewFileSet creates an empty FileSet.
func NewFileSet() *FileSet { return &FileSet{} }

// AddFile registers a new file with the set and returns it.
func (fs *FileSet) AddFile(name string, src []byte) *File {
	f := NewFile(name, src)
	fs.files = append(fs.files, f)
	return f
}

// Files returns every file registered with the set, in registration order.
func (fs *FileSet) Files() []*File { return fs.files }
