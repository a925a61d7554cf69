// Package console exposes a small websocket control endpoint for the
// host daemon: clients can start and pause ports and adjust the
// calibration scale factor while the bridge is running.
package console

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Control is the slice of the encoder link the console drives.
type Control interface {
	Start(port int) error
	Pause(port int) error
	SetScaleFactor(f float32) error
	QueryScaleFactor(timeout time.Duration) (float32, error)
}

// Request is one JSON control message from a client.
type Request struct {
	Op    string  `json:"op"` // start, pause, set_scale, get_scale
	Port  int     `json:"port,omitempty"`
	Value float32 `json:"value,omitempty"`
}

// Response answers one request.
type Response struct {
	Op    string  `json:"op"`
	OK    bool    `json:"ok"`
	Value float32 `json:"value,omitempty"`
	Error string  `json:"error,omitempty"`
}

// queryTimeout bounds the round trip to the board for get_scale.
const queryTimeout = 2 * time.Second

// Server handles websocket control connections.
type Server struct {
	ctrl     Control
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer wires a control endpoint over ctrl. A nil logger discards.
func NewServer(ctrl Control, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		ctrl: ctrl,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 512,
		},
	}
}

// ServeHTTP upgrades the connection and serves control messages until
// the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	s.log.Info("console client connected", "remote", conn.RemoteAddr())

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("console client error", "err", err)
			}
			return
		}

		resp := s.handle(req)
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Warn("console write failed", "err", err)
			return
		}
	}
}

func (s *Server) handle(req Request) Response {
	resp := Response{Op: req.Op}

	var err error
	switch req.Op {
	case "start":
		err = s.ctrl.Start(req.Port)
	case "pause":
		err = s.ctrl.Pause(req.Port)
	case "set_scale":
		err = s.ctrl.SetScaleFactor(req.Value)
	case "get_scale":
		resp.Value, err = s.ctrl.QueryScaleFactor(queryTimeout)
	default:
		err = fmt.Errorf("unknown op %q", req.Op)
	}

	if err != nil {
		resp.Error = err.Error()
		s.log.Warn("console request failed", "op", req.Op, "err", err)
		return resp
	}
	resp.OK = true
	return resp
}
