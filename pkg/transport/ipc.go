package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// IPCSlots Discord 客户端依次尝试的 socket 编号 discord-ipc-0..9
const IPCSlots = 10

// ipcConn 包装 IPC 字节流，实现 Conn
type ipcConn struct {
	net.Conn
}

func (c *ipcConn) RemoteAddr() string {
	return c.Conn.RemoteAddr().String()
}

// DialIPC 依次尝试所有 IPC 端点，返回第一个可用连接
func DialIPC(ctx context.Context) (Conn, error) {
	var lastErr error
	for _, path := range ipcPaths() {
		conn, err := dialEndpoint(ctx, path)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEndpoint, lastErr)
	}
	return nil, ErrNoEndpoint
}

// fileConn 包装 named pipe 文件（Windows），实现 Conn
type fileConn struct {
	*os.File
}

func (c *fileConn) RemoteAddr() string {
	return c.File.Name()
}

func (c *fileConn) SetReadDeadline(t time.Time) error {
	return c.File.SetReadDeadline(t)
}

func (c *fileConn) SetWriteDeadline(t time.Time) error {
	return c.File.SetWriteDeadline(t)
}
