package oto

import (
	"encoding/binary"
	"math"
)

// interleaveFloat32LE writes frames of planar audio to dst as interleaved
// 32-bit little-endian floats. dst must hold len(planar)*frames*4 bytes.
func interleaveFloat32LE(dst []byte, planar [][]float32, frames int) {
	k := 0
	for i := 0; i < frames; i++ {
		for _, ch := range planar {
			binary.LittleEndian.PutUint32(dst[k:], math.Float32bits(ch[i]))
			k += 4
		}
	}
}
