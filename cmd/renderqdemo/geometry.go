package main

import (
	"encoding/binary"
	"math"
)

func rotate(x, y, turn float32) (float32, float32) {
	s, c := math.Sincos(2 * math.Pi * float64(turn))
	return float32(float64(x)*c - float64(y)*s), float32(float64(x)*s + float64(y)*c)
}

func appendFloat32(b []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
}
