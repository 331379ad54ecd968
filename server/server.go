package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/curvy/server/utils"
)

// Server accepts WebSocket sessions and serves the static web client on
// every other path. Each accepted session is handed to the attach hook
// before its read loop starts.
type Server struct {
	cfg    utils.Config
	logger *zap.Logger
	attach func(*Client)
	http   *http.Server
}

func New(cfg utils.Config, logger *zap.Logger, attach func(*Client)) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		attach: attach,
	}
}

// Handler builds the HTTP mux: WebSocket upgrades on any path, /health,
// and static files from the configured web directory.
func (s *Server) Handler() http.Handler {
	ws := &websocket.Server{
		Handler: s.handleSession,
		Handshake: func(cfg *websocket.Config, req *http.Request) error {
			// The client requests the "websocket" subprotocol token.
			for _, proto := range cfg.Protocol {
				if proto == "websocket" {
					cfg.Protocol = []string{"websocket"}
					break
				}
			}
			return nil
		},
	}

	static := http.FileServer(http.Dir(s.cfg.Server.WebDir))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			ws.ServeHTTP(w, r)
			return
		}
		static.ServeHTTP(w, r)
	})
	return mux
}

func (s *Server) handleSession(conn *websocket.Conn) {
	client := NewClient(
		conn,
		s.logger,
		s.cfg.Game.FlushInterval,
		s.cfg.Game.PingInterval,
		s.cfg.Game.SendTimeout,
	)
	s.logger.Info("session opened",
		zap.String("session", client.ID()),
		zap.String("remote", conn.Request().RemoteAddr),
	)
	s.attach(client)
	client.Run()
}

// ListenAndServe blocks until the listener fails or ctx is cancelled,
// then drains with a short shutdown grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()
	s.logger.Info("listening", zap.Int("port", s.cfg.Server.Port))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
