package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

/*
宿主通道消息帧格式（WebSocket 二进制消息）：
+----------+----------+----------+------------------+
|  MsgType |   Seq    |  Length  |     Payload      |
|  4 bytes |  8 bytes |  4 bytes |   变长 (msgpack)  |
+----------+----------+----------+------------------+
大端序
*/

const (
	HeaderSize    = 16      // 4 + 8 + 4
	MaxPayloadLen = 1 << 20 // 1MB，与 IPC 帧共用
)

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrInvalidFrame    = errors.New("invalid frame")
)

// Frame 宿主通道消息帧
type Frame struct {
	MsgType uint32
	Seq     uint64
	Payload []byte
}

// EncodeFrame 编码消息帧
func EncodeFrame(f *Frame) []byte {
	buf := make([]byte, HeaderSize+len(f.Payload))
	putHeader(buf, f.MsgType, f.Seq, len(f.Payload))
	copy(buf[HeaderSize:], f.Payload)
	return buf
}

// DecodeFrame 解码消息帧
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidFrame
	}

	msgType, seq, payloadLen, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if len(data) != HeaderSize+payloadLen {
		return nil, ErrInvalidFrame
	}

	return &Frame{
		MsgType: msgType,
		Seq:     seq,
		Payload: cloneBytes(data[HeaderSize:]),
	}, nil
}

func putHeader(buf []byte, msgType uint32, seq uint64, payloadLen int) {
	binary.BigEndian.PutUint32(buf[0:4], msgType)
	binary.BigEndian.PutUint64(buf[4:12], seq)
	binary.BigEndian.PutUint32(buf[12:16], uint32(payloadLen))
}

func parseHeader(header []byte) (uint32, uint64, int, error) {
	payloadLen := binary.BigEndian.Uint32(header[12:16])
	if payloadLen > MaxPayloadLen {
		return 0, 0, 0, ErrPayloadTooLarge
	}
	return binary.BigEndian.Uint32(header[0:4]), binary.BigEndian.Uint64(header[4:12]), int(payloadLen), nil
}

func readPayload(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
