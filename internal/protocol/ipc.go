package protocol

import (
	"encoding/binary"
	"encoding/json"
	"io"
)

/*
Discord IPC 帧格式（unix socket / named pipe 字节流）：
+----------+----------+------------------+
|  Opcode  |  Length  |     Payload      |
|  4 bytes |  4 bytes |    变长 (JSON)    |
+----------+----------+------------------+
小端序
*/

// IPCHeaderSize IPC 帧头长度
const IPCHeaderSize = 8

// Opcode IPC 操作码
type Opcode uint32

const (
	OpHandshake Opcode = 0
	OpFrame     Opcode = 1
	OpClose     Opcode = 2
	OpPing      Opcode = 3
	OpPong      Opcode = 4
)

func (o Opcode) String() string {
	switch o {
	case OpHandshake:
		return "handshake"
	case OpFrame:
		return "frame"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return "unknown"
	}
}

// IPCFrame Discord IPC 帧
type IPCFrame struct {
	Op      Opcode
	Payload []byte
}

// NewIPCFrame 将 v 编码为 JSON 并封装成帧
func NewIPCFrame(op Opcode, v interface{}) (*IPCFrame, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &IPCFrame{Op: op, Payload: payload}, nil
}

// EncodeIPCFrame 编码 IPC 帧
func EncodeIPCFrame(f *IPCFrame) []byte {
	buf := make([]byte, IPCHeaderSize+len(f.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.Op))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(f.Payload)))
	copy(buf[IPCHeaderSize:], f.Payload)
	return buf
}

// ReadIPCFrame 从字节流读取一个 IPC 帧
func ReadIPCFrame(r io.Reader) (*IPCFrame, error) {
	header := make([]byte, IPCHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	op := Opcode(binary.LittleEndian.Uint32(header[0:4]))
	payloadLen := binary.LittleEndian.Uint32(header[4:8])
	if payloadLen > MaxPayloadLen {
		return nil, ErrPayloadTooLarge
	}

	payload, err := readPayload(r, int(payloadLen))
	if err != nil {
		return nil, err
	}
	return &IPCFrame{Op: op, Payload: payload}, nil
}

// WriteIPCFrame 写入一个 IPC 帧
// 帧头与负载一次写出，避免并发写入交错
func WriteIPCFrame(w io.Writer, f *IPCFrame) error {
	_, err := w.Write(EncodeIPCFrame(f))
	return err
}
