package presence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/qiminjie89/presenced/pkg/logger"
	"github.com/qiminjie89/presenced/pkg/metrics"
)

// BridgeOptions Bridge 配置
type BridgeOptions struct {
	// ShowElapsed 为 true 时在 Presence 上标记进入当前顶层菜单的时间
	ShowElapsed bool
	// Now 时钟，默认 time.Now
	Now func() time.Time
	// Dispatch 执行一次推送，默认新起 goroutine
	Dispatch func(func())
}

// Bridge 把导航事件转换为状态推送
// 事件在单个 goroutine 上串行处理；推送异步执行、不等待结果
type Bridge struct {
	mapper    *Mapper
	setter    ActivitySetter
	navigator Navigator
	profile   ProfileTextProvider
	opts      BridgeOptions

	infoMu sync.RWMutex
	info   UserInfo

	currentRoot RootMenu
	enteredAt   time.Time

	seq       atomic.Uint64
	completed atomic.Uint64 // 已完成推送中的最大序号
}

// NewBridge 创建 Bridge
func NewBridge(mapper *Mapper, setter ActivitySetter, navigator Navigator, profile ProfileTextProvider, opts BridgeOptions) *Bridge {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(fn func()) { go fn() }
	}
	return &Bridge{
		mapper:    mapper,
		setter:    setter,
		navigator: navigator,
		profile:   profile,
		opts:      opts,
	}
}

// Run 消费导航事件直到 ctx 结束或事件流关闭
func (b *Bridge) Run(ctx context.Context) error {
	events := b.navigator.Events()
	logger.Info("event bridge started", zap.Bool("show_elapsed", b.opts.ShowElapsed))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-events:
			if !ok {
				logger.Info("navigation stream closed")
				return nil
			}
			b.HandleMenuChange(ctx, state)
		}
	}
}

// HandleMenuChange 处理一次 menuChange，返回是否发起了推送
func (b *Bridge) HandleMenuChange(ctx context.Context, state NavigationState) bool {
	metrics.NavigationEvents.WithLabelValues(rootLabel(state.Root)).Inc()

	if state.Root == RootMainMenu {
		text := state.ProfileText
		if text == "" {
			text = b.profile.ProfileText()
		}
		b.refreshProfile(text)
	}

	friendly := state.Friendly
	if friendly == "" {
		friendly = b.navigator.Friendly()
	}
	logger.Debug("menu changed",
		zap.String("root", string(state.Root)),
		zap.String("child", string(state.Child)),
		zap.String("friendly", friendly),
	)

	if state.Root != b.currentRoot {
		b.currentRoot = state.Root
		b.enteredAt = b.opts.Now()
	}

	p := b.mapper.Map(state)
	if p == nil {
		metrics.NavigationUnmapped.Inc()
		logger.Debug("no presence for navigation state", zap.String("root", string(state.Root)))
		return false
	}

	p = ExtendWithProfile(p, b.UserInfo())
	if b.opts.ShowElapsed {
		p.StartTime = b.enteredAt
	}

	seq := b.seq.Add(1)
	b.opts.Dispatch(func() {
		ok := b.setter.SetActivity(ctx, p)
		b.complete(seq)
		logger.Debug("presence push finished",
			zap.Uint64("seq", seq),
			zap.Bool("ok", ok),
		)
	})
	return true
}

// UserInfo 当前资料快照
func (b *Bridge) UserInfo() UserInfo {
	b.infoMu.RLock()
	defer b.infoMu.RUnlock()
	return b.info
}

func (b *Bridge) refreshProfile(text string) {
	fields, ok := ParseProfileText(text)
	if !ok {
		metrics.ProfileParses.WithLabelValues("miss").Inc()
		logger.Debug("profile text not recognized", zap.String("text", text))
		return
	}
	metrics.ProfileParses.WithLabelValues("matched").Inc()

	b.infoMu.Lock()
	b.info.Merge(fields)
	b.infoMu.Unlock()
}

// complete 记录完成序号；旧推送晚于新推送完成时计数
func (b *Bridge) complete(seq uint64) {
	for {
		cur := b.completed.Load()
		if seq < cur {
			metrics.PushesOutOfOrder.Inc()
			logger.Debug("presence push completed out of order",
				zap.Uint64("seq", seq),
				zap.Uint64("newest", cur),
			)
			return
		}
		if b.completed.CompareAndSwap(cur, seq) {
			return
		}
	}
}

func rootLabel(r RootMenu) string {
	if r.Known() {
		return string(r)
	}
	return "unknown"
}
