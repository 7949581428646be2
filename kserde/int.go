package kserde

import (
	"encoding/binary"
	"fmt"
)

// Uint32Serializer serializes uint32 to big-endian bytes
var Uint32Serializer = func(data uint32) ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, data)
	return buf, nil
}

// Uint32Deserializer deserializes big-endian bytes to uint32
var Uint32Deserializer = func(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("uint32 deserialization requires exactly 4 bytes, got %d", len(data))
	}
	return binary.BigEndian.Uint32(data), nil
}

// Uint32 is a SerDe for uint32 values. Big-endian keys sort in numeric
// order.
var Uint32 = Serde[uint32]{
	Serializer:   Uint32Serializer,
	Deserializer: Uint32Deserializer,
}
