package services

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRegistersFloat32(t *testing.T) {
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, math.Float32bits(1234.5))

	v, err := decodeRegisters(data, 2)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, v)
}

func TestDecodeRegistersUint64(t *testing.T) {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, 987654321)

	v, err := decodeRegisters(data, 4)
	require.NoError(t, err)
	assert.Equal(t, float64(987654321), v)
}

func TestDecodeRegistersErrors(t *testing.T) {
	_, err := decodeRegisters([]byte{0x01, 0x02}, 2)
	assert.Error(t, err)

	_, err = decodeRegisters(make([]byte, 8), 3)
	assert.Error(t, err)
}
