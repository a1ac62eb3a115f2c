package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/qiminjie89/presenced/internal/host"
	"github.com/qiminjie89/presenced/internal/presence"
	"github.com/qiminjie89/presenced/internal/rpc"
	"github.com/qiminjie89/presenced/pkg/config"
	"github.com/qiminjie89/presenced/pkg/logger"
)

func main() {
	// 解析命令行参数
	configPath := pflag.StringP("config", "c", "configs/presenced.yaml", "config file path")
	logLevel := pflag.String("log-level", "", "override log.level")
	pflag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("load config failed: " + err.Error())
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	// 初始化日志
	if err := logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}); err != nil {
		panic("init logger failed: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting presenced",
		zap.String("config", *configPath),
		zap.String("client_id", cfg.Discord.ClientID),
		zap.String("transport", cfg.Discord.Transport),
		zap.String("locale", cfg.Presence.Locale),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 宿主通道
	hostServer := host.NewServer(cfg)
	if err := hostServer.Start(); err != nil {
		logger.Error("start host server failed", zap.Error(err))
		os.Exit(1)
	}

	// Discord 会话
	phrases := presence.PhrasesFor(cfg.Presence.Locale)
	client := rpc.NewClient(rpc.Options{
		ClientID:    cfg.Discord.ClientID,
		Transport:   cfg.Discord.Transport,
		DialTimeout: cfg.Discord.DialTimeout,
	})
	manager := presence.NewManager(client, hostServer, presence.NewRegistrar(cfg.Discord.RegisterProtocol), presence.ManagerOptions{
		ClientID: cfg.Discord.ClientID,
		Phrases:  phrases,
	})
	hostServer.SetStatusSource(manager)

	// 登录失败不退出，之后的推送会被跳过
	if err := manager.Login(ctx); err != nil {
		logger.Warn("discord login failed, presence updates disabled", zap.Error(err))
	}
	hostServer.PublishStatus()

	bridge := presence.NewBridge(presence.NewMapper(phrases), manager, hostServer, hostServer, presence.BridgeOptions{
		ShowElapsed: cfg.Presence.ShowElapsed,
	})
	if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("event bridge stopped", zap.Error(err))
	}

	logger.Info("received shutdown signal")
	hostServer.Stop()
	client.Close()
}
