// Package rpc 实现 Discord 本地 RPC 客户端：握手、READY、SET_ACTIVITY
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/qiminjie89/presenced/internal/protocol"
	"github.com/qiminjie89/presenced/pkg/logger"
)

// Options 客户端配置
type Options struct {
	ClientID    string
	Transport   string // ipc, websocket
	DialTimeout time.Duration
}

type dialFunc func(ctx context.Context, clientID string) (framer, error)

// Client Discord RPC 客户端
// 一次 Login 对应一个 session；session 关闭后 SetActivity 返回错误
type Client struct {
	opts Options
	dial dialFunc
	pid  int

	mu   sync.Mutex
	sess *session
	user *protocol.User
}

// NewClient 创建客户端
func NewClient(opts Options) *Client {
	dial := dialIPC
	if opts.Transport == "websocket" {
		dial = dialWebSocket
	}
	return newClient(opts, dial)
}

func newClient(opts Options, dial dialFunc) *Client {
	return &Client{
		opts: opts,
		dial: dial,
		pid:  os.Getpid(),
	}
}

// Login 建立连接并完成握手，返回 READY 中的用户
func (c *Client) Login(ctx context.Context) (*protocol.User, error) {
	c.mu.Lock()
	if c.sess != nil && c.user != nil && !c.sess.closed() {
		u := *c.user
		c.mu.Unlock()
		return &u, nil
	}
	c.mu.Unlock()

	dialCtx := ctx
	if c.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.opts.DialTimeout)
		defer cancel()
	}

	conn, err := c.dial(dialCtx, c.opts.ClientID)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}

	s := newSession(conn)
	go s.readLoop()

	hs, err := protocol.NewIPCFrame(protocol.OpHandshake, protocol.Handshake{
		V:        protocol.RPCVersion,
		ClientID: c.opts.ClientID,
	})
	if err != nil {
		s.close(err)
		return nil, err
	}
	if err := s.write(hs); err != nil {
		werr := &ConnectionError{Op: "handshake", Err: err}
		s.close(werr)
		return nil, werr
	}

	select {
	case r := <-s.ready:
		if r.err != nil {
			s.close(r.err)
			return nil, r.err
		}
		c.mu.Lock()
		c.sess = s
		c.user = r.user
		c.mu.Unlock()

		logger.Debug("rpc handshake complete",
			zap.String("user", r.user.Tag()),
		)
		u := *r.user
		return &u, nil

	case <-s.closeCh:
		return nil, s.err

	case <-ctx.Done():
		s.close(ctx.Err())
		return nil, ctx.Err()
	}
}

// SetActivity 发送 SET_ACTIVITY 并等待带相同 nonce 的响应
func (c *Client) SetActivity(ctx context.Context, activity *protocol.Activity) error {
	c.mu.Lock()
	s := c.sess
	connected := c.user != nil
	c.mu.Unlock()

	if s == nil || !connected {
		return ErrNotConnected
	}
	if s.closed() {
		return fmt.Errorf("%w: %w", ErrClosed, s.err)
	}

	nonce := uuid.NewString()
	ch := s.register(nonce)
	defer s.unregister(nonce)

	frame, err := protocol.NewIPCFrame(protocol.OpFrame, protocol.Command{
		Cmd:   protocol.CmdSetActivity,
		Args:  protocol.SetActivityArgs{PID: c.pid, Activity: activity},
		Nonce: nonce,
	})
	if err != nil {
		return err
	}
	if err := s.write(frame); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}

	select {
	case resp := <-ch:
		if resp.Evt == protocol.EvtError {
			var data protocol.ErrorData
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("decode error response: %w", err)
			}
			return protocol.NewError(data)
		}
		return nil

	case <-s.closeCh:
		return fmt.Errorf("%w: %w", ErrClosed, s.err)

	case <-ctx.Done():
		return ctx.Err()
	}
}

// User 返回已登录用户
func (c *Client) User() (protocol.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return protocol.User{}, false
	}
	return *c.user, true
}

// Close 关闭当前连接
func (c *Client) Close() error {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s != nil {
		s.close(ErrClosed)
	}
	return nil
}

type readyResult struct {
	user *protocol.User
	err  error
}

// session 单条 RPC 连接：读循环 + 按 nonce 分发响应
type session struct {
	conn framer

	mu      sync.Mutex
	pending map[string]chan *protocol.Response

	ready chan readyResult

	closeOnce sync.Once
	closeCh   chan struct{}
	err       error // closeCh 关闭前写入
}

func newSession(conn framer) *session {
	return &session{
		conn:    conn,
		pending: make(map[string]chan *protocol.Response),
		ready:   make(chan readyResult, 1),
		closeCh: make(chan struct{}),
	}
}

func (s *session) write(f *protocol.IPCFrame) error {
	return s.conn.WriteFrame(f)
}

func (s *session) register(nonce string) chan *protocol.Response {
	ch := make(chan *protocol.Response, 1)
	s.mu.Lock()
	s.pending[nonce] = ch
	s.mu.Unlock()
	return ch
}

func (s *session) unregister(nonce string) {
	s.mu.Lock()
	delete(s.pending, nonce)
	s.mu.Unlock()
}

func (s *session) closed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}

func (s *session) close(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		close(s.closeCh)
		s.conn.Close()
	})
}

// readLoop 读循环
func (s *session) readLoop() {
	for {
		f, err := s.conn.ReadFrame()
		if err != nil {
			s.close(&ConnectionError{Op: "read", Err: err})
			return
		}

		switch f.Op {
		case protocol.OpPing:
			if err := s.write(&protocol.IPCFrame{Op: protocol.OpPong, Payload: f.Payload}); err != nil {
				s.close(&ConnectionError{Op: "pong", Err: err})
				return
			}

		case protocol.OpClose:
			var data protocol.ErrorData
			if err := json.Unmarshal(f.Payload, &data); err != nil {
				data = protocol.ErrorData{Code: protocol.CloseAbnormal, Message: string(f.Payload)}
			}
			logger.Warn("rpc connection closed by discord",
				zap.Int("code", data.Code),
				zap.String("message", data.Message),
			)
			s.close(protocol.NewError(data))
			return

		case protocol.OpFrame:
			s.dispatch(f.Payload)

		default:
			logger.Debug("rpc frame ignored", zap.Stringer("op", f.Op))
		}
	}
}

// dispatch 带 nonce 的是命令响应，不带的是事件
func (s *session) dispatch(payload []byte) {
	nonce := gjson.GetBytes(payload, "nonce").String()
	if nonce == "" {
		s.handleEvent(payload)
		return
	}

	s.mu.Lock()
	ch, ok := s.pending[nonce]
	delete(s.pending, nonce)
	s.mu.Unlock()
	if !ok {
		logger.Debug("rpc response without waiter", zap.String("nonce", nonce))
		return
	}

	var resp protocol.Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		resp = protocol.Response{
			Evt:  protocol.EvtError,
			Data: json.RawMessage(fmt.Sprintf(`{"code":%d,"message":%q}`, protocol.RPCErrInvalidPayload, err.Error())),
		}
	}
	ch <- &resp
}

func (s *session) handleEvent(payload []byte) {
	evt := gjson.GetBytes(payload, "evt").String()
	switch evt {
	case protocol.EvtReady:
		var msg struct {
			Data protocol.ReadyData `json:"data"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.signalReady(readyResult{err: fmt.Errorf("decode READY: %w", err)})
			return
		}
		s.signalReady(readyResult{user: &msg.Data.User})

	case protocol.EvtError:
		data := gjson.GetBytes(payload, "data")
		s.signalReady(readyResult{err: protocol.NewError(protocol.ErrorData{
			Code:    int(data.Get("code").Int()),
			Message: data.Get("message").String(),
		})})

	default:
		logger.Debug("rpc event ignored",
			zap.String("cmd", gjson.GetBytes(payload, "cmd").String()),
			zap.String("evt", evt),
		)
	}
}

func (s *session) signalReady(r readyResult) {
	select {
	case s.ready <- r:
	default:
	}
}
