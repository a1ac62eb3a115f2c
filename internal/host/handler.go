package host

import (
	"go.uber.org/zap"

	"github.com/qiminjie89/presenced/internal/protocol"
	"github.com/qiminjie89/presenced/pkg/logger"
	"github.com/qiminjie89/presenced/pkg/metrics"
)

// handleMessage 按消息类型分发
func (c *Connection) handleMessage(data []byte) {
	frame, err := protocol.DecodeFrame(data)
	if err != nil {
		logger.Warn("decode host frame failed",
			zap.String("host_id", c.HostID),
			zap.Error(err),
		)
		return
	}

	metrics.HostFramesReceived.WithLabelValues(protocol.MsgTypeName(frame.MsgType)).Inc()

	switch frame.MsgType {
	case protocol.MsgTypeMenuChange:
		c.server.handleMenuChange(c, frame)
	case protocol.MsgTypeHeartbeat:
		c.server.handleHeartbeat(c, frame)
	default:
		logger.Warn("unknown host message type",
			zap.String("host_id", c.HostID),
			zap.Uint32("msg_type", frame.MsgType),
		)
	}
}

// handleMenuChange 处理导航变化
func (s *Server) handleMenuChange(conn *Connection, frame *protocol.Frame) {
	var mc protocol.MenuChange
	if err := protocol.Decode(frame.Payload, &mc); err != nil {
		logger.Warn("decode menu change failed",
			zap.String("host_id", conn.HostID),
			zap.Error(err),
		)
		return
	}

	logger.Debug("menu change received",
		zap.String("host_id", conn.HostID),
		zap.Uint64("seq", frame.Seq),
		zap.String("root", mc.Root),
		zap.String("child", mc.Child),
	)
	s.publishNavigation(&mc)
}

// handleHeartbeat 原样回显 seq
func (s *Server) handleHeartbeat(conn *Connection, frame *protocol.Frame) {
	conn.Send(&protocol.Frame{
		MsgType: protocol.MsgTypeHeartbeatResp,
		Seq:     frame.Seq,
	})
}
