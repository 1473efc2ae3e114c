package heap

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"

	"github.com/aelys-lang/aelys/lang/value"
)

// ErrUseAfterFree is raised by load/store on a freed allocation.
type ErrUseAfterFree struct{ Ptr int64 }

func (e *ErrUseAfterFree) Error() string { return fmt.Sprintf("use after free: ptr %d", e.Ptr) }

// ErrDoubleFree is raised by a second free() of the same pointer.
type ErrDoubleFree struct{ Ptr int64 }

func (e *ErrDoubleFree) Error() string { return fmt.Sprintf("double free: ptr %d", e.Ptr) }

// ErrOutOfBounds is raised by load/store with an offset outside the
// allocation, or a negative offset (spec §4.7, §8).
type ErrOutOfBounds struct {
	Ptr, Offset int64
	Size        int
}

func (e *ErrOutOfBounds) Error() string {
	return fmt.Sprintf("out of bounds: ptr %d offset %d (size %d)", e.Ptr, e.Offset, e.Size)
}

// block is one manual allocation, backed by an anonymous mmap region so the
// slot-counted region genuinely lives outside the Go heap and the tracing
// GC above.
type block struct {
	mem  []byte // slotBytes (16) bytes per slot, holding an encoded value.Value
	freed bool
}

// manualRegion implements alloc/free/load/store (spec §4.7): privileged
// builtins operating on slot-counted blocks outside the GC, with
// use-after-free, double-free, and bounds checks.
type manualRegion struct {
	h      *Heap
	blocks map[int64]*block
	nextID int64
}

func newManualRegion(h *Heap) *manualRegion {
	return &manualRegion{h: h, blocks: make(map[int64]*block)}
}

const slotBytes = 16 // tag byte + 15 bytes payload, rounded for alignment

// Alloc reserves size slots outside the GC and returns their pointer id.
func (h *Heap) Alloc(size int) (int64, error) {
	if size < 0 {
		return 0, fmt.Errorf("alloc: negative size %d", size)
	}
	n := size * slotBytes
	if n == 0 {
		n = slotBytes
	}
	if h.maxBytes > 0 && h.bytesUsed+n > h.maxBytes {
		return 0, &ErrOutOfMemory{Requested: n, Budget: h.maxBytes, InUse: h.bytesUsed}
	}
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, fmt.Errorf("alloc: mmap: %w", err)
	}
	h.manual.nextID++
	id := h.manual.nextID
	h.manual.blocks[id] = &block{mem: mem}
	h.bytesUsed += n
	return id, nil
}

// Free releases a manual allocation. A second Free of the same pointer is a
// double-free error.
func (h *Heap) Free(ptr int64) error {
	b, ok := h.manual.blocks[ptr]
	if !ok {
		return &ErrDoubleFree{Ptr: ptr}
	}
	if b.freed {
		return &ErrDoubleFree{Ptr: ptr}
	}
	b.freed = true
	h.bytesUsed -= len(b.mem)
	if err := unix.Munmap(b.mem); err != nil {
		return fmt.Errorf("free: munmap: %w", err)
	}
	delete(h.manual.blocks, ptr)
	return nil
}

// Store writes a Value at the given slot offset.
func (h *Heap) Store(ptr, offset int64, v value.Value) error {
	b, err := h.manualBlock(ptr)
	if err != nil {
		return err
	}
	if offset < 0 || (offset+1)*slotBytes > int64(len(b.mem)) {
		return &ErrOutOfBounds{Ptr: ptr, Offset: offset, Size: len(b.mem) / slotBytes}
	}
	encodeSlot(b.mem[offset*slotBytes:], v)
	return nil
}

// Load reads a Value from the given slot offset.
func (h *Heap) Load(ptr, offset int64) (value.Value, error) {
	b, err := h.manualBlock(ptr)
	if err != nil {
		return value.Value{}, err
	}
	if offset < 0 || (offset+1)*slotBytes > int64(len(b.mem)) {
		return value.Value{}, &ErrOutOfBounds{Ptr: ptr, Offset: offset, Size: len(b.mem) / slotBytes}
	}
	return decodeSlot(b.mem[offset*slotBytes:]), nil
}

func (h *Heap) manualBlock(ptr int64) (*block, error) {
	b, ok := h.manual.blocks[ptr]
	if !ok || b.freed {
		return nil, &ErrUseAfterFree{Ptr: ptr}
	}
	return b, nil
}

func encodeSlot(buf []byte, v value.Value) {
	buf[0] = byte(v.Kind())
	switch v.Kind() {
	case value.KindInt:
		i, _ := v.AsInt()
		putInt64(buf[1:], i)
	case value.KindFloat:
		f, _ := v.AsFloat()
		putInt64(buf[1:], int64(math.Float64bits(f)))
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			buf[1] = 1
		} else {
			buf[1] = 0
		}
	case value.KindPtr:
		ref, _ := v.AsPtr()
		putInt64(buf[1:], int64(ref))
	case value.KindRaw:
		raw, _ := v.AsRaw()
		putInt64(buf[1:], int64(raw))
	}
}

func decodeSlot(buf []byte) value.Value {
	switch value.Kind(buf[0]) {
	case value.KindInt:
		return value.Int(getInt64(buf[1:]))
	case value.KindFloat:
		return value.Float(math.Float64frombits(uint64(getInt64(buf[1:]))))
	case value.KindBool:
		return value.Bool(buf[1] != 0)
	case value.KindPtr:
		return value.Ptr(value.GcRef(getInt64(buf[1:])))
	case value.KindRaw:
		return value.Raw(uint64(getInt64(buf[1:])))
	default:
		return value.Null
	}
}

func putInt64(buf []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
}

func getInt64(buf []byte) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u |= uint64(buf[i]) << (8 * i)
	}
	return int64(u)
}
