package transport

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport WebSocket 传输层实现（宿主通道服务端）
type WebSocketTransport struct {
	cfg      WebSocketConfig
	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener
	connCh   chan *WebSocketConn
	doneCh   chan struct{}
	doneOnce sync.Once
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	Path             string
	ReadBufferSize   int
	WriteBufferSize  int
	HandshakeTimeout time.Duration
	// CheckOrigin 为空时接受任意来源
	CheckOrigin func(r *http.Request) bool
}

// NewWebSocketTransport 创建 WebSocket 传输层
func NewWebSocketTransport(cfg WebSocketConfig) *WebSocketTransport {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = allowAnyOrigin
	}
	return &WebSocketTransport{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   cfg.ReadBufferSize,
			WriteBufferSize:  cfg.WriteBufferSize,
			HandshakeTimeout: cfg.HandshakeTimeout,
			CheckOrigin:      checkOrigin,
		},
		connCh: make(chan *WebSocketConn, 16),
		doneCh: make(chan struct{}),
	}
}

// 宿主插件运行在游戏页面内，Origin 为游戏域名；鉴权依赖 JWT
func allowAnyOrigin(*http.Request) bool { return true }

// Listen 监听地址
func (t *WebSocketTransport) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	t.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(t.cfg.Path, t.handleWebSocket)

	t.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go t.server.Serve(ln)
	return nil
}

// Addr 返回实际监听地址（监听 :0 时用于获取端口）
func (t *WebSocketTransport) Addr() string {
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	wsConn := &WebSocketConn{
		conn:       conn,
		remoteAddr: r.RemoteAddr,
	}

	select {
	case t.connCh <- wsConn:
	case <-t.doneCh:
		conn.Close()
	}
}

// Accept 接受新连接
func (t *WebSocketTransport) Accept() (Conn, error) {
	select {
	case conn := <-t.connCh:
		return conn, nil
	case <-t.doneCh:
		return nil, http.ErrServerClosed
	}
}

// Close 关闭传输层
func (t *WebSocketTransport) Close() error {
	t.doneOnce.Do(func() { close(t.doneCh) })
	if t.server != nil {
		return t.server.Close()
	}
	return nil
}

// DialWebSocket 作为客户端建立 WebSocket 连接
func DialWebSocket(ctx context.Context, url string, header http.Header) (*WebSocketConn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &WebSocketConn{conn: conn, remoteAddr: conn.RemoteAddr().String()}, nil
}

// WebSocketConn WebSocket 连接实现
type WebSocketConn struct {
	conn       *websocket.Conn
	remoteAddr string
	writeMu    sync.Mutex
}

// Read 读取一条消息（超出 p 的部分被截断）
func (c *WebSocketConn) Read(p []byte) (int, error) {
	data, err := c.ReadMessage()
	if err != nil {
		return 0, err
	}
	return copy(p, data), nil
}

// Write 写入一条二进制消息
func (c *WebSocketConn) Write(p []byte) (int, error) {
	if err := c.WriteBinary(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ReadMessage 读取一条完整消息
func (c *WebSocketConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// WriteBinary 写入二进制消息
func (c *WebSocketConn) WriteBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

// WriteText 写入文本消息
func (c *WebSocketConn) WriteText(data []byte) error {
	return c.write(websocket.TextMessage, data)
}

// gorilla/websocket 只允许一个并发写者
func (c *WebSocketConn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// Close 关闭连接
func (c *WebSocketConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr 返回远程地址
func (c *WebSocketConn) RemoteAddr() string {
	return c.remoteAddr
}

// SetReadDeadline 设置读超时
func (c *WebSocketConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline 设置写超时
func (c *WebSocketConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}
