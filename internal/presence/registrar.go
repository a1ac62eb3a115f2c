package presence

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"github.com/qiminjie89/presenced/pkg/logger"
)

// Registrar 向系统注册 discord-<id>:// 协议处理器
type Registrar interface {
	Register(clientID string) error
}

// NoopRegistrar 不做任何事
type NoopRegistrar struct{}

func (NoopRegistrar) Register(string) error { return nil }

// DesktopRegistrar 在 XDG applications 目录写入 discord-<id>.desktop
// 文件已存在时不覆盖
type DesktopRegistrar struct {
	Dir     string // 为空时使用 $XDG_DATA_HOME/applications 或 ~/.local/share/applications
	Command string // 为空时使用当前可执行文件
}

// NewRegistrar 按平台与开关选择实现
func NewRegistrar(enabled bool) Registrar {
	if !enabled || runtime.GOOS != "linux" {
		return NoopRegistrar{}
	}
	return &DesktopRegistrar{}
}

// Register 写入 desktop entry
func (r *DesktopRegistrar) Register(clientID string) error {
	if clientID == "" {
		return errors.New("register: empty client id")
	}

	dir, err := r.dir()
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	path := filepath.Join(dir, "discord-"+clientID+".desktop")

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("register: stat %s: %w", path, err)
	}

	command := r.Command
	if command == "" {
		if command, err = os.Executable(); err != nil {
			return fmt.Errorf("register: %w", err)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if err := os.WriteFile(path, []byte(desktopEntry(clientID, command)), 0o644); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	logger.Info("protocol handler registered",
		zap.String("client_id", clientID),
		zap.String("path", path),
	)
	return nil
}

func (r *DesktopRegistrar) dir() (string, error) {
	if r.Dir != "" {
		return r.Dir, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "applications"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "applications"), nil
}

func desktopEntry(clientID, command string) string {
	return "[Desktop Entry]\n" +
		"Name=Game " + clientID + "\n" +
		"Exec=" + command + " %u\n" +
		"Type=Application\n" +
		"NoDisplay=true\n" +
		"Categories=Discord;Games;\n" +
		"MimeType=x-scheme-handler/discord-" + clientID + ";\n"
}
