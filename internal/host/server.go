// Package host 实现宿主通道：游戏插件通过 WebSocket 上报导航事件，presenced 下发通知
package host

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/qiminjie89/presenced/internal/presence"
	"github.com/qiminjie89/presenced/internal/protocol"
	"github.com/qiminjie89/presenced/pkg/auth"
	"github.com/qiminjie89/presenced/pkg/config"
	"github.com/qiminjie89/presenced/pkg/logger"
	"github.com/qiminjie89/presenced/pkg/metrics"
	"github.com/qiminjie89/presenced/pkg/transport"
)

// StatusSource Discord 会话状态来源（presence.Manager）
type StatusSource interface {
	State() presence.SessionState
	User() (protocol.User, bool)
}

// Server 宿主通道服务器
// 同一时刻只保留一个宿主连接，新连接替换旧连接
type Server struct {
	cfg       *config.Config
	transport *transport.WebSocketTransport
	validator *auth.JWTValidator

	// 导航事件队列
	events chan presence.NavigationState

	// 当前连接与最近一次上报的界面状态
	mu          sync.RWMutex
	conn        *Connection
	friendly    string
	profileText string

	status atomic.Value // StatusSource
	seq    atomic.Uint64

	healthServer *http.Server
	healthAddr   string
	startTime    time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer 创建宿主通道服务器
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg: cfg,
		transport: transport.NewWebSocketTransport(transport.WebSocketConfig{
			Path:             "/ws",
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
			HandshakeTimeout: cfg.Host.HandshakeTimeout,
		}),
		validator: auth.NewJWTValidator(cfg.Host.JWTSecret, cfg.Host.DevMode),
		events:    make(chan presence.NavigationState, cfg.Host.EventQueueSize),
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetStatusSource 设置健康检查与 SessionStatus 使用的会话状态来源
func (s *Server) SetStatusSource(src StatusSource) {
	s.status.Store(&src)
}

func (s *Server) statusSource() StatusSource {
	if v, ok := s.status.Load().(*StatusSource); ok {
		return *v
	}
	return nil
}

// Start 启动 WebSocket 与健康检查服务
func (s *Server) Start() error {
	logger.Info("starting host server",
		zap.String("addr", s.cfg.Host.Addr),
		zap.Bool("dev_mode", s.cfg.Host.DevMode),
	)

	if err := s.transport.Listen(s.cfg.Host.Addr); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()

	if s.cfg.Host.HealthAddr != "" {
		if err := s.startHealthServer(); err != nil {
			s.transport.Close()
			return err
		}
	}

	logger.Info("host server started", zap.String("addr", s.Addr()))
	return nil
}

// Stop 停止服务并关闭当前连接
func (s *Server) Stop() {
	logger.Info("stopping host server")
	s.cancel()
	s.transport.Close()

	if s.healthServer != nil {
		s.healthServer.Close()
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close("shutdown")
	}

	s.wg.Wait()
	logger.Info("host server stopped")
}

// Addr 实际监听地址
func (s *Server) Addr() string {
	return s.transport.Addr()
}

// HealthAddr 健康检查实际监听地址
func (s *Server) HealthAddr() string {
	return s.healthAddr
}

// Events 导航事件流
func (s *Server) Events() <-chan presence.NavigationState {
	return s.events
}

// Friendly 最近一次上报的可读导航描述
func (s *Server) Friendly() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.friendly
}

// ProfileText 最近一次上报的资料文本
func (s *Server) ProfileText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profileText
}

// Connected 是否有已认证的宿主连接
func (s *Server) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// Notify 把通知下发给宿主；无连接或队列满时丢弃
func (s *Server) Notify(n presence.Notification) {
	frame, err := protocol.NewFrame(protocol.MsgTypeNotification, s.nextSeq(), &protocol.Notification{
		Title:      n.Title,
		Message:    n.Message,
		DurationMs: n.Duration.Milliseconds(),
		TitleColor: n.TitleColor,
	})
	if err != nil {
		logger.Error("encode notification failed", zap.Error(err))
		return
	}

	if !s.send(frame) {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		logger.Warn("notification dropped",
			zap.String("title", n.Title),
			zap.String("message", n.Message),
		)
		return
	}
	metrics.Notifications.WithLabelValues("delivered").Inc()
}

// PublishStatus 向宿主推送当前 Discord 会话状态
func (s *Server) PublishStatus() {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn != nil {
		s.sendStatus(conn)
	}
}

func (s *Server) sendStatus(conn *Connection) {
	src := s.statusSource()
	if src == nil {
		return
	}
	status := &protocol.SessionStatus{State: src.State().String()}
	if user, ok := src.User(); ok {
		status.Username = user.Username
		status.Discriminator = user.Discriminator
	}
	frame, err := protocol.NewFrame(protocol.MsgTypeSessionStatus, s.nextSeq(), status)
	if err != nil {
		logger.Error("encode session status failed", zap.Error(err))
		return
	}
	conn.Send(frame)
}

func (s *Server) send(frame *protocol.Frame) bool {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Send(frame)
}

func (s *Server) nextSeq() uint64 {
	return s.seq.Add(1)
}

// setConnection 替换当前连接
func (s *Server) setConnection(conn *Connection) {
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.mu.Unlock()

	if old != nil {
		old.Close("replaced")
	}
}

// removeConnection 仅当 conn 仍是当前连接时移除
func (s *Server) removeConnection(conn *Connection) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
}

// publishNavigation 记录界面状态并投递导航事件；队列满时丢弃
func (s *Server) publishNavigation(mc *protocol.MenuChange) bool {
	s.mu.Lock()
	s.friendly = mc.Friendly
	if mc.ProfileText != "" {
		s.profileText = mc.ProfileText
	}
	// 事件携带投递时刻的界面值，排队期间后续帧不会覆盖
	state := presence.NavigationState{
		Root:        presence.RootMenu(mc.Root),
		Child:       presence.ChildMenu(mc.Child),
		Friendly:    s.friendly,
		ProfileText: s.profileText,
	}
	s.mu.Unlock()

	select {
	case s.events <- state:
		return true
	default:
		metrics.HostEventsDropped.Inc()
		logger.Warn("navigation event dropped, queue full",
			zap.String("root", mc.Root),
		)
		return false
	}
}
