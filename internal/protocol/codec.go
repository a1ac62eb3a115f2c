package protocol

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Encode 使用 msgpack 编码宿主通道负载
func Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode 使用 msgpack 解码宿主通道负载
func Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// NewFrame 编码 v 并封装成宿主通道帧
func NewFrame(msgType uint32, seq uint64, v interface{}) (*Frame, error) {
	payload, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return &Frame{MsgType: msgType, Seq: seq, Payload: payload}, nil
}
