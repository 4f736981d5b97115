package voiceprint

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode, feature vektörünü little-endian float64 dizisi olarak byte'a çevirir.
// Şifrelemeden önce DB'ye yazılacak ham format budur.
func Encode(features []float64) []byte {
	buf := make([]byte, 8*len(features))
	for i, v := range features {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// Decode, Encode'un tersi.
func Decode(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("voiceprint payload length %d is not a multiple of 8", len(data))
	}
	features := make([]float64, len(data)/8)
	for i := range features {
		features[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return features, nil
}
