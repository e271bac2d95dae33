package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	errs "github.com/matzehuels/ontograph/pkg/errors"
	"github.com/matzehuels/ontograph/pkg/session"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = 54 * time.Second
	wsFramePeriod = 50 * time.Millisecond
	wsMaxMessage  = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 << 10,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsMessage is an outgoing frame. Only the writer goroutine touches the
// connection's write side.
type wsMessage struct {
	kind int
	data []byte
}

// handleWS streams a viewer over a WebSocket. Text messages from the client
// are PointerEvent JSON and are answered with State JSON; rendered frames
// are pushed as binary PNG messages whenever the session draws.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session", v.id, "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan wsMessage, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		s.wsWriter(ctx, conn, v, out)
	}()

	s.wsReader(ctx, conn, v, out)
	cancel()
	<-writerDone
}

func (s *Server) wsReader(ctx context.Context, conn *websocket.Conn, v *viewer, out chan<- wsMessage) {
	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket closed", "session", v.id, "err", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		reply, err := s.wsHandle(ctx, v, data)
		if errors.Is(err, session.ErrLoopClosed) {
			return
		}
		if err != nil {
			reply, _ = json.Marshal(map[string]string{
				"error": errs.UserMessage(err),
				"code":  string(errs.GetCode(err)),
			})
		}
		select {
		case out <- wsMessage{websocket.TextMessage, reply}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) wsHandle(ctx context.Context, v *viewer, data []byte) ([]byte, error) {
	var ev PointerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode event")
	}
	var st State
	var applyErr error
	err := v.do(ctx, func(sess *session.Session) {
		applyErr = apply(sess, ev)
		st = stateOf(v, sess)
	})
	if err != nil {
		return nil, err
	}
	if applyErr != nil {
		return nil, applyErr
	}
	return json.Marshal(st)
}

func (s *Server) wsWriter(ctx context.Context, conn *websocket.Conn, v *viewer, out <-chan wsMessage) {
	frames := time.NewTicker(wsFramePeriod)
	defer frames.Stop()
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	write := func(kind int, data []byte) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(kind, data); err != nil {
			s.logger.Debug("websocket write failed", "session", v.id, "err", err)
			return false
		}
		return true
	}

	last := -1
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return

		case msg := <-out:
			if !write(msg.kind, msg.data) {
				return
			}

		case <-frames.C:
			var buf bytes.Buffer
			var encErr error
			err := v.do(ctx, func(sess *session.Session) {
				if n := sess.Frames(); n != last {
					last = n
					encErr = encodeFrame(&buf, v, sess)
				}
			})
			if err != nil {
				return
			}
			if encErr != nil {
				s.logger.Warn("encode frame", "session", v.id, "err", encErr)
				continue
			}
			if buf.Len() > 0 && !write(websocket.BinaryMessage, buf.Bytes()) {
				return
			}

		case <-ping.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}
