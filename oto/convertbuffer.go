package oto

import (
	"encoding/binary"
	"math"

	"github.com/vsariola/tahti"
)

// FloatBufferToBytes appends the samples of buff to dst as interleaved
// float32 little endian values, the format the oto context is opened with.
func FloatBufferToBytes(buff tahti.AudioBuffer, dst []byte) []byte {
	for _, frame := range buff {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(frame[0]))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(frame[1]))
	}
	return dst
}

// BytesToFloatBuffer decodes interleaved stereo float32 little endian samples.
// A trailing partial frame is dropped.
func BytesToFloatBuffer(b []byte) tahti.AudioBuffer {
	ret := make(tahti.AudioBuffer, len(b)/8)
	for i := range ret {
		ret[i][0] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*8:]))
		ret[i][1] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*8+4:]))
	}
	return ret
}
