package comm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/agbru/heatcalc/internal/grid"
)

// Wire format of one WebSocket binary message:
//
//	offset 0   kind   uint8
//	offset 1   src    int32, little endian
//	offset 5   tag    int32, little endian
//	offset 9   count  uint32, little endian
//	offset 13  count float64 values, IEEE-754 bits little endian
const (
	frameHello uint8 = 1
	frameData  uint8 = 2

	frameHeaderSize = 13
)

type frame struct {
	kind   uint8
	src    int
	tag    int
	values []float64
}

func encodeFrame(kind uint8, src, tag int, values []float64) []byte {
	buf := make([]byte, frameHeaderSize+8*len(values))
	buf[0] = kind
	binary.LittleEndian.PutUint32(buf[1:], uint32(int32(src)))
	binary.LittleEndian.PutUint32(buf[5:], uint32(int32(tag)))
	binary.LittleEndian.PutUint32(buf[9:], uint32(len(values)))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[frameHeaderSize+8*i:], math.Float64bits(v))
	}
	return buf
}

// decodeFrame parses data. Values are placed in a pooled row buffer that
// the receiver releases with grid.ReleaseRow.
func decodeFrame(data []byte) (frame, error) {
	if len(data) < frameHeaderSize {
		return frame{}, fmt.Errorf("short frame: %d bytes", len(data))
	}
	f := frame{
		kind: data[0],
		src:  int(int32(binary.LittleEndian.Uint32(data[1:]))),
		tag:  int(int32(binary.LittleEndian.Uint32(data[5:]))),
	}
	if f.kind != frameHello && f.kind != frameData {
		return frame{}, fmt.Errorf("unknown frame kind %d", f.kind)
	}
	count := int(binary.LittleEndian.Uint32(data[9:]))
	if want := frameHeaderSize + 8*count; len(data) != want {
		return frame{}, fmt.Errorf("frame declares %d values but carries %d bytes, want %d", count, len(data), want)
	}
	if count == 0 {
		return f, nil
	}
	f.values = grid.AcquireRow(count)
	body := data[frameHeaderSize:]
	for i := range f.values {
		f.values[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[8*i:]))
	}
	return f, nil
}
