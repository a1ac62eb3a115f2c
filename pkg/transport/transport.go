// Package transport 提供传输层抽象：宿主通道 WebSocket 监听，
// 以及连接 Discord 客户端的 IPC / WebSocket 拨号
package transport

import (
	"errors"
	"io"
	"time"
)

// ErrNoEndpoint 没有可用的 Discord 端点
var ErrNoEndpoint = errors.New("no discord endpoint available")

// Transport 服务端传输层接口
type Transport interface {
	// Listen 监听指定地址
	Listen(addr string) error
	// Accept 接受新连接
	Accept() (Conn, error)
	// Close 关闭传输层
	Close() error
}

// Conn 字节流连接接口
type Conn interface {
	io.ReadWriteCloser
	// RemoteAddr 返回远程地址
	RemoteAddr() string
	// SetReadDeadline 设置读超时
	SetReadDeadline(t time.Time) error
	// SetWriteDeadline 设置写超时
	SetWriteDeadline(t time.Time) error
}

// MessageConn 消息边界连接接口（WebSocket）
type MessageConn interface {
	Conn
	// ReadMessage 读取一条完整消息
	ReadMessage() ([]byte, error)
	// WriteBinary 写入一条二进制消息
	WriteBinary(data []byte) error
	// WriteText 写入一条文本消息
	WriteText(data []byte) error
}
