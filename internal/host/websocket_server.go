package host

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qiminjie89/presenced/internal/protocol"
	"github.com/qiminjie89/presenced/pkg/auth"
	"github.com/qiminjie89/presenced/pkg/logger"
	"github.com/qiminjie89/presenced/pkg/metrics"
	"github.com/qiminjie89/presenced/pkg/transport"
)

var (
	ErrAuthTimeout = errors.New("authentication timeout")
	ErrInvalidAuth = errors.New("invalid authentication")
)

// acceptLoop 接受连接直到传输层关闭
func (s *Server) acceptLoop() {
	for {
		c, err := s.transport.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
			default:
				logger.Error("host accept failed", zap.Error(err))
			}
			return
		}

		conn, ok := c.(transport.MessageConn)
		if !ok {
			c.Close()
			continue
		}
		go s.handleConn(conn)
	}
}

// handleConn 认证后登记连接并启动读写循环
func (s *Server) handleConn(conn transport.MessageConn) {
	if s.cfg.Host.HandshakeTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.Host.HandshakeTimeout))
	}

	hostID, err := s.authenticate(conn)
	if err != nil {
		logger.Warn("host authentication failed",
			zap.Error(err),
			zap.String("remote_addr", conn.RemoteAddr()),
		)
		conn.Close()
		return
	}

	conn.SetReadDeadline(time.Time{})

	c := NewConnection(hostID, uuid.NewString(), conn, s)
	s.setConnection(c)
	metrics.HostConnections.Inc()

	logger.Info("host connected",
		zap.String("host_id", hostID),
		zap.String("conn_id", c.ConnID),
		zap.String("remote_addr", conn.RemoteAddr()),
	)

	c.Start()
	s.sendStatus(c)
}

// authenticate 第一帧必须是 Auth
func (s *Server) authenticate(conn transport.MessageConn) (string, error) {
	data, err := conn.ReadMessage()
	if err != nil {
		return "", ErrAuthTimeout
	}

	frame, err := protocol.DecodeFrame(data)
	if err != nil || frame.MsgType != protocol.MsgTypeAuth {
		s.sendAuthResp(conn, false, "", protocol.ErrCodeInvalidRequest)
		return "", ErrInvalidAuth
	}

	var req protocol.AuthRequest
	if err := protocol.Decode(frame.Payload, &req); err != nil {
		s.sendAuthResp(conn, false, "", protocol.ErrCodeInvalidRequest)
		return "", ErrInvalidAuth
	}

	claims, err := s.validator.Authenticate(req.Token, req.HostID)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			s.sendAuthResp(conn, false, "", protocol.ErrCodeTokenExpired)
			return "", err
		}
		s.sendAuthResp(conn, false, "", protocol.ErrCodeAuthFailed)
		return "", ErrInvalidAuth
	}

	s.sendAuthResp(conn, true, claims.HostID, protocol.ErrCodeSuccess)
	return claims.HostID, nil
}

// sendAuthResp 在读写循环启动前同步写出
func (s *Server) sendAuthResp(conn transport.MessageConn, success bool, hostID string, code int) {
	frame, err := protocol.NewFrame(protocol.MsgTypeAuthResp, 0, &protocol.AuthResponse{
		Success: success,
		HostID:  hostID,
		Code:    code,
		Message: protocol.ErrCodeMessage[code],
	})
	if err != nil {
		logger.Warn("encode auth response failed", zap.Error(err))
		return
	}
	if err := conn.WriteBinary(protocol.EncodeFrame(frame)); err != nil {
		logger.Debug("write auth response failed", zap.Error(err))
		return
	}
	metrics.HostFramesSent.WithLabelValues(protocol.MsgTypeName(frame.MsgType)).Inc()
}
