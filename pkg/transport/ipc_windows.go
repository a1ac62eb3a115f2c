//go:build windows

package transport

import (
	"context"
	"fmt"
	"os"
)

func ipcPaths() []string {
	paths := make([]string, 0, IPCSlots)
	for i := 0; i < IPCSlots; i++ {
		paths = append(paths, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
	}
	return paths
}

// named pipe 客户端端可直接按文件打开
func dialEndpoint(_ context.Context, path string) (Conn, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &fileConn{File: f}, nil
}
