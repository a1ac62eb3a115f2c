//go:build !windows

package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// ipcPaths 按 XDG_RUNTIME_DIR、TMPDIR、TMP、TEMP、/tmp 的顺序查找 discord-ipc-N
func ipcPaths() []string {
	dir := "/tmp"
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := os.Getenv(key); v != "" {
			dir = v
			break
		}
	}

	paths := make([]string, 0, IPCSlots)
	for i := 0; i < IPCSlots; i++ {
		paths = append(paths, filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i)))
	}
	return paths
}

func dialEndpoint(ctx context.Context, path string) (Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	return &ipcConn{Conn: conn}, nil
}
