package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qiminjie89/presenced/internal/protocol"
	"github.com/qiminjie89/presenced/pkg/logger"
	"github.com/qiminjie89/presenced/pkg/metrics"
)

// 错误弹窗参数
const (
	NotificationDuration   = 10 * time.Second
	NotificationTitleColor = "#f51212"
)

// SessionState Discord 会话状态
type SessionState int32

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ManagerOptions Manager 配置
type ManagerOptions struct {
	ClientID string
	Phrases  Phrases
}

// Manager 持有 Discord 会话，负责 login 与 setActivity
// 状态机：Disconnected → Connecting → Connected | Disconnected，Connected 无出口
type Manager struct {
	client   ActivityClient
	notifier Notifier
	opts     ManagerOptions

	mu    sync.RWMutex
	state SessionState
	user  protocol.User
}

// NewManager 创建 Manager 并注册应用 ID
func NewManager(client ActivityClient, notifier Notifier, registrar Registrar, opts ManagerOptions) *Manager {
	if registrar != nil {
		if err := registrar.Register(opts.ClientID); err != nil {
			logger.Warn("register application failed",
				zap.String("client_id", opts.ClientID),
				zap.Error(err),
			)
		}
	}
	metrics.SessionState.Set(float64(StateDisconnected))

	return &Manager{
		client:   client,
		notifier: notifier,
		opts:     opts,
		state:    StateDisconnected,
	}
}

// Login 建立会话；失败时弹窗并保持 Disconnected，错误仅供调用方记录
// 已连接时直接返回，Connected 没有出口
func (m *Manager) Login(ctx context.Context) error {
	if m.State() == StateConnected {
		logger.Debug("rpc already logged in")
		return nil
	}
	m.setState(StateConnecting)

	user, err := m.client.Login(ctx)
	if err != nil {
		m.setState(StateDisconnected)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		logger.Error("rpc login failed", zap.Error(err))
		m.notifyError(err)
		return err
	}

	m.mu.Lock()
	m.user = *user
	m.state = StateConnected
	m.mu.Unlock()
	metrics.SessionState.Set(float64(StateConnected))
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	logger.Info("rpc logged in",
		zap.String("user", user.Tag()),
		zap.String("user_id", user.ID),
	)
	return nil
}

// SetActivity 推送状态
// 未连接时直接返回 false 且不发起网络调用；发送失败弹窗一次并返回 false，会话状态不变
func (m *Manager) SetActivity(ctx context.Context, p *Presence) bool {
	if m.State() != StateConnected {
		metrics.Pushes.WithLabelValues("skipped").Inc()
		return false
	}

	activity := BuildActivity(p, m.opts.Phrases.ProductName)

	start := time.Now()
	err := m.client.SetActivity(ctx, activity)
	metrics.PushDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.Pushes.WithLabelValues("failed").Inc()
		logger.Error("set activity failed",
			zap.String("details", p.Details),
			zap.Error(err),
		)
		m.notifyError(err)
		return false
	}

	metrics.Pushes.WithLabelValues("sent").Inc()
	logger.Debug("activity set",
		zap.String("details", activity.Details),
		zap.String("large_text", largeText(activity)),
	)
	return true
}

// State 当前会话状态
func (m *Manager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User 已连接的远端用户
func (m *Manager) User() (protocol.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user, m.state == StateConnected
}

func (m *Manager) setState(s SessionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	metrics.SessionState.Set(float64(s))
}

func (m *Manager) notifyError(err error) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(Notification{
		Title:      m.opts.Phrases.ErrorTitle,
		Message:    fmt.Sprintf("%s: %s", ErrorKind(err), errorMessage(err)),
		Duration:   NotificationDuration,
		TitleColor: NotificationTitleColor,
	})
}

// BuildActivity Presence → SET_ACTIVITY 负载，补齐默认图标与产品名
func BuildActivity(p *Presence, productName string) *protocol.Activity {
	activity := &protocol.Activity{
		Details:  p.Details,
		State:    p.State,
		Instance: p.Instance,
		Assets: &protocol.Assets{
			LargeImage: DefaultLargeImageKey,
			SmallImage: DefaultSmallImageKey,
			SmallText:  productName,
		},
	}

	if !p.StartTime.IsZero() || !p.EndTime.IsZero() {
		activity.Timestamps = &protocol.Timestamps{}
		if !p.StartTime.IsZero() {
			activity.Timestamps.Start = p.StartTime.UnixMilli()
		}
		if !p.EndTime.IsZero() {
			activity.Timestamps.End = p.EndTime.UnixMilli()
		}
	}

	if p.LargeImage != nil {
		if p.LargeImage.Key != "" {
			activity.Assets.LargeImage = p.LargeImage.Key
		}
		activity.Assets.LargeText = p.LargeImage.Text
	}
	if p.SmallImage != nil {
		if p.SmallImage.Key != "" {
			activity.Assets.SmallImage = p.SmallImage.Key
		}
		if p.SmallImage.Text != "" {
			activity.Assets.SmallText = p.SmallImage.Text
		}
	}
	return activity
}

func largeText(a *protocol.Activity) string {
	if a.Assets == nil {
		return ""
	}
	return a.Assets.LargeText
}

type kinder interface {
	Kind() string
}

// ErrorKind 通知文案中的错误类别
func ErrorKind(err error) string {
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "Error"
}

func errorMessage(err error) string {
	var rpcErr *protocol.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	return err.Error()
}
