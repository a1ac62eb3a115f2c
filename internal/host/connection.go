package host

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qiminjie89/presenced/internal/protocol"
	"github.com/qiminjie89/presenced/pkg/logger"
	"github.com/qiminjie89/presenced/pkg/metrics"
	"github.com/qiminjie89/presenced/pkg/transport"
)

// Connection 一个已认证的宿主连接
type Connection struct {
	HostID string
	ConnID string
	conn   transport.MessageConn

	// 下行消息队列
	sendCh chan *protocol.Frame

	writeTimeout time.Duration
	lastSeen     time.Time
	mu           sync.Mutex

	closeOnce sync.Once
	closeCh   chan struct{}

	server *Server
}

// NewConnection 创建连接
func NewConnection(hostID, connID string, conn transport.MessageConn, server *Server) *Connection {
	return &Connection{
		HostID:       hostID,
		ConnID:       connID,
		conn:         conn,
		sendCh:       make(chan *protocol.Frame, server.cfg.Host.SendChSize),
		writeTimeout: server.cfg.Host.WriteTimeout,
		lastSeen:     time.Now(),
		closeCh:      make(chan struct{}),
		server:       server,
	}
}

// Start 启动读写循环
func (c *Connection) Start() {
	go c.readLoop()
	go c.writeLoop()
}

func (c *Connection) readLoop() {
	defer c.Close("read_error")

	for {
		data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closeCh:
			default:
				logger.Debug("host connection read error",
					zap.String("host_id", c.HostID),
					zap.Error(err),
				)
			}
			return
		}

		c.mu.Lock()
		c.lastSeen = time.Now()
		c.mu.Unlock()

		c.handleMessage(data)
	}
}

func (c *Connection) writeLoop() {
	for {
		select {
		case <-c.closeCh:
			return

		case frame := <-c.sendCh:
			if c.writeTimeout > 0 {
				c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if err := c.conn.WriteBinary(protocol.EncodeFrame(frame)); err != nil {
				logger.Debug("host connection write error",
					zap.String("host_id", c.HostID),
					zap.Error(err),
				)
				c.Close("write_error")
				return
			}
			metrics.HostFramesSent.WithLabelValues(protocol.MsgTypeName(frame.MsgType)).Inc()
		}
	}
}

// Send 投递到下行队列（非阻塞），队列满或已关闭时返回 false
func (c *Connection) Send(frame *protocol.Frame) bool {
	select {
	case <-c.closeCh:
		return false
	default:
	}

	select {
	case c.sendCh <- frame:
		return true
	default:
		logger.Warn("host send queue full",
			zap.String("host_id", c.HostID),
			zap.String("msg_type", protocol.MsgTypeName(frame.MsgType)),
		)
		return false
	}
}

// LastSeen 最近一次收到消息的时间
func (c *Connection) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Close 关闭连接
func (c *Connection) Close(reason string) {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.conn.Close()

		metrics.HostConnectionCloseReason.WithLabelValues(reason).Inc()
		metrics.HostConnections.Dec()

		logger.Info("host connection closed",
			zap.String("host_id", c.HostID),
			zap.String("conn_id", c.ConnID),
			zap.String("reason", reason),
		)

		if c.server != nil {
			c.server.removeConnection(c)
		}
	})
}
