package gateway

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/mktr-labs/tooldeck/internal/interfaces"
)

// wsEnvelope is the frame format on the operator websocket. The server
// pushes confirm_request frames; the console answers with decision frames.
type wsEnvelope struct {
	Type     string                      `json:"type"` // "confirm_request", "decision", "error"
	Request  *interfaces.ConfirmRequest  `json:"request,omitempty"`
	Decision *interfaces.ConfirmDecision `json:"decision,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

// handleOperatorWS upgrades the connection and bridges it to the confirm
// broker: pending prompts out, decisions in.
func (s *Server) handleOperatorWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The gateway also serves the TUI console from other origins.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ctx := r.Context()
	sub := s.broker.Subscribe()
	defer sub.Unsubscribe()

	s.logger.Info("operator console connected", "remote", r.RemoteAddr)

	// Replay prompts that were already open before this console connected.
	for _, req := range s.broker.Pending() {
		pending := req
		if err := wsjson.Write(ctx, conn, wsEnvelope{Type: "confirm_request", Request: &pending}); err != nil {
			return
		}
	}

	// Writer: forward new prompts to the console.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for {
			select {
			case req, ok := <-sub.Requests():
				if !ok {
					return
				}
				if err := wsjson.Write(ctx, conn, wsEnvelope{Type: "confirm_request", Request: &req}); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Reader: apply decisions until the console disconnects.
	for {
		var env wsEnvelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			break
		}
		if env.Type != "decision" || env.Decision == nil {
			_ = wsjson.Write(ctx, conn, wsEnvelope{Type: "error", Error: "expected a decision frame"})
			continue
		}
		if err := s.broker.Decide(*env.Decision); err != nil {
			_ = wsjson.Write(ctx, conn, wsEnvelope{Type: "error", Error: err.Error()})
		}
	}

	<-ctxOrDone(ctx, writeDone)
	s.logger.Info("operator console disconnected", "remote", r.RemoteAddr)
}

func ctxOrDone(ctx context.Context, done <-chan struct{}) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		select {
		case <-ctx.Done():
		case <-done:
		}
	}()
	return out
}
