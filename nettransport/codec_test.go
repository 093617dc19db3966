package nettransport_test

import (
	"bytes"
	"testing"

	"github.com/horus-robotics/horus/nettransport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	A int64
	B float64
}

func TestToBytesFromBytesRoundTrip(t *testing.T) {
	v := sample{A: 7, B: 3.5}
	b := nettransport.ToBytes(&v)
	got, err := nettransport.FromBytes[sample](b)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestFromBytesRejectsWrongSize(t *testing.T) {
	_, err := nettransport.FromBytes[sample]([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestWriteFrameReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello frame")
	require.NoError(t, nettransport.WriteFrame(&buf, payload))

	got, err := nettransport.ReadFrame(&buf, nettransport.DefaultMaxFrame)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, nettransport.WriteFrame(&buf, make([]byte, 100)))
	_, err := nettransport.ReadFrame(&buf, 10)
	assert.Error(t, err)
}

func TestEncodeDecodeControlRoundTrip(t *testing.T) {
	msg := nettransport.ControlMessage{Topic: "t_imu", AttachID: "attach-abc123"}
	b, err := nettransport.EncodeControl(msg)
	require.NoError(t, err)

	got, err := nettransport.DecodeControl(b)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}
