package host

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qiminjie89/presenced/internal/presence"
	"github.com/qiminjie89/presenced/pkg/logger"
)

// HealthStatus 健康状态
type HealthStatus struct {
	Status        string  `json:"status"`
	Reason        string  `json:"reason,omitempty"`
	HostConnected bool    `json:"host_connected"`
	SessionState  string  `json:"session_state"`
	DiscordUser   string  `json:"discord_user,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// startHealthServer 启动 /health 与 /metrics
func (s *Server) startHealthServer() error {
	ln, err := net.Listen("tcp", s.cfg.Host.HealthAddr)
	if err != nil {
		return err
	}
	s.healthAddr = ln.Addr().String()

	s.healthServer = &http.Server{
		Handler:           s.healthMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting health server", zap.String("addr", s.healthAddr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.healthServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) healthMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	if s.cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

// healthHandler Discord 会话未连接时返回 503
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		HostConnected: s.Connected(),
		SessionState:  presence.StateDisconnected.String(),
		UptimeSeconds: time.Since(s.startTime).Seconds(),
	}

	if src := s.statusSource(); src != nil {
		health.SessionState = src.State().String()
		if user, ok := src.User(); ok {
			health.DiscordUser = user.Tag()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if health.SessionState == presence.StateConnected.String() {
		health.Status = "healthy"
		w.WriteHeader(http.StatusOK)
	} else {
		health.Status = "unhealthy"
		health.Reason = "discord_" + health.SessionState
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(health)
}
