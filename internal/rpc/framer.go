package rpc

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/qiminjie89/presenced/internal/protocol"
	"github.com/qiminjie89/presenced/pkg/transport"
)

// framer 按 IPC 帧收发，屏蔽 IPC 字节流与 WebSocket 消息的差异
type framer interface {
	ReadFrame() (*protocol.IPCFrame, error)
	WriteFrame(f *protocol.IPCFrame) error
	Close() error
}

// ipcFramer unix socket / named pipe 上的帧读写
type ipcFramer struct {
	conn    transport.Conn
	writeMu sync.Mutex
}

func (f *ipcFramer) ReadFrame() (*protocol.IPCFrame, error) {
	return protocol.ReadIPCFrame(f.conn)
}

func (f *ipcFramer) WriteFrame(frame *protocol.IPCFrame) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return protocol.WriteIPCFrame(f.conn, frame)
}

func (f *ipcFramer) Close() error {
	return f.conn.Close()
}

// wsFramer WebSocket 传输：每条文本消息即一个 JSON 负载，无帧头
// client_id 在 URL 中携带，因此不发送握手帧；心跳由 WebSocket 协议层处理
type wsFramer struct {
	conn transport.MessageConn
}

func (f *wsFramer) ReadFrame() (*protocol.IPCFrame, error) {
	data, err := f.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return &protocol.IPCFrame{Op: protocol.OpFrame, Payload: data}, nil
}

func (f *wsFramer) WriteFrame(frame *protocol.IPCFrame) error {
	if frame.Op != protocol.OpFrame {
		return nil
	}
	return f.conn.WriteText(frame.Payload)
}

func (f *wsFramer) Close() error {
	return f.conn.Close()
}

// WebSocket RPC 端口范围
const (
	wsPortStart = 6463
	wsPortEnd   = 6472
	wsOrigin    = "https://localhost"
)

func dialIPC(ctx context.Context, _ string) (framer, error) {
	conn, err := transport.DialIPC(ctx)
	if err != nil {
		return nil, err
	}
	return &ipcFramer{conn: conn}, nil
}

func dialWebSocket(ctx context.Context, clientID string) (framer, error) {
	header := http.Header{}
	header.Set("Origin", wsOrigin)

	var lastErr error
	for port := wsPortStart; port <= wsPortEnd; port++ {
		url := fmt.Sprintf("ws://127.0.0.1:%d/?v=%d&client_id=%s&encoding=json", port, protocol.RPCVersion, clientID)
		conn, err := transport.DialWebSocket(ctx, url, header)
		if err == nil {
			return &wsFramer{conn: conn}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: %v", transport.ErrNoEndpoint, lastErr)
}
