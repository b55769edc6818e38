package db

import (
	"encoding/binary"
	"math"
)

// EncodeVector packs v as little-endian FLOAT32, the layout FT vector fields
// and KNN query blobs expect.
func EncodeVector(v []float32) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return string(buf)
}

// DecodeVector reverses EncodeVector. Input whose length is not a multiple
// of four yields nil.
func DecodeVector(s string) []float32 {
	if len(s)%4 != 0 {
		return nil
	}
	v := make([]float32, len(s)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[4*i : 4*i+4])))
	}
	return v
}
