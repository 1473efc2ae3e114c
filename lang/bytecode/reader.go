package bytecode

import (
	"encoding/binary"
	"io"
	"math"
)

// byteReader is a small little-endian cursor over an io.Reader, used by
// Decode to parse the binary bytecode envelope (spec §6).
type byteReader struct {
	r io.Reader
}

func (br *byteReader) u8() (uint8, error) {
	var b [1]byte
	_, err := io.ReadFull(br.r, b[:])
	return b[0], err
}

func (br *byteReader) u16() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func (br *byteReader) u32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (br *byteReader) u64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (br *byteReader) bytes(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float64Bits(f float64) uint64    { return math.Float64bits(f) }
func float64FromBits(u uint64) float64 { return math.Float64frombits(u) }
