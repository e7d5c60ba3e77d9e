// Package ipc는 데스크톱 UI 레이어용 로컬 WebSocket 엔드포인트를 제공합니다.
// 각 요청 프레임은 shell.Operations 호출 하나로 변환됩니다.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/insajin/coworker-shell/internal/shell"
	"github.com/rs/zerolog"
)

const (
	// Path는 WebSocket 엔드포인트 경로입니다.
	Path = "/ipc"

	// WriteTimeout은 메시지 쓰기 타임아웃입니다.
	WriteTimeout = 10 * time.Second

	// PongWait는 pong 응답 대기 시간입니다.
	PongWait = 60 * time.Second

	// PingInterval은 ping 전송 간격입니다.
	PingInterval = (PongWait * 9) / 10

	// MaxMessageSize는 최대 메시지 크기입니다 (1MB).
	MaxMessageSize = 1024 * 1024

	sendBufferSize = 32
)

// Server는 UI 레이어 요청을 Operations로 전달하는 WebSocket 서버입니다.
type Server struct {
	ops      shell.Operations
	addr     string
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// client는 연결된 UI 하나입니다.
type client struct {
	conn *websocket.Conn
	send chan interface{}
}

// NewServer는 새 IPC 서버를 생성합니다.
func NewServer(ops shell.Operations, addr string, logger zerolog.Logger) *Server {
	s := &Server{
		ops:     ops,
		addr:    addr,
		logger:  logger.With().Str("component", "ipc").Logger(),
		clients: make(map[*client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     allowedOrigin,
	}
	return s
}

// allowedOrigin은 Origin이 없거나 루프백 호스트인 요청만 허용합니다.
func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Handler는 IPC 엔드포인트가 등록된 http.Handler를 반환합니다.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleWS)
	return mux
}

// ListenAndServe는 ctx가 취소될 때까지 IPC 서버를 실행합니다.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("IPC 리스너 생성 실패 (%s): %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve는 주어진 리스너로 IPC 서버를 실행합니다.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Str("path", Path).Msg("[ipc] IPC 서버 시작")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("IPC 서버 종료 실패: %w", err)
		}
		s.logger.Info().Msg("[ipc] IPC 서버 종료")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Broadcast는 연결된 모든 클라이언트에 이벤트를 보냅니다.
// 송신 버퍼가 가득 찬 클라이언트는 이번 이벤트를 건너뜁니다.
func (s *Server) Broadcast(event string, data interface{}) {
	frame := Event{Event: event, Data: data}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- frame:
		default:
			s.logger.Debug().Str("event", event).Msg("[ipc] 송신 버퍼 가득 참, 이벤트 생략")
		}
	}
}

// ClientCount는 연결된 클라이언트 수를 반환합니다.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.conn.Close()
	}
}

// handleWS는 연결 하나의 읽기 루프를 실행합니다.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("[ipc] WebSocket 업그레이드 실패")
		return
	}
	defer func() { _ = conn.Close() }()

	// 진행 중인 요청은 연결 컨텍스트가 취소된 뒤에 기다립니다.
	var inflight sync.WaitGroup
	defer inflight.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &client{
		conn: conn,
		send: make(chan interface{}, sendBufferSize),
	}
	s.register(c)
	defer s.unregister(c)

	s.logger.Info().Str("remote", r.RemoteAddr).Msg("[ipc] 클라이언트 연결")

	conn.SetReadLimit(MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	go s.writeLoop(ctx, c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Msg("[ipc] 읽기 오류")
			}
			s.logger.Info().Str("remote", r.RemoteAddr).Msg("[ipc] 클라이언트 연결 종료")
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			s.push(ctx, c, Response{
				ID:    uuid.New().String(),
				Error: &ErrorBody{Kind: KindBadRequest, Message: "invalid request frame: " + err.Error()},
			})
			continue
		}
		if req.ID == "" {
			req.ID = uuid.New().String()
		}

		inflight.Add(1)
		go func(req Request) {
			defer inflight.Done()
			s.push(ctx, c, s.dispatch(ctx, req))
		}(req)
	}
}

// writeLoop는 송신 큐와 ping을 처리합니다.
func (s *Server) writeLoop(ctx context.Context, c *client) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := c.conn.WriteJSON(frame); err != nil {
				s.logger.Warn().Err(err).Msg("[ipc] 쓰기 실패")
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

// push는 연결이 살아 있는 동안 frame을 송신 큐에 넣습니다.
func (s *Server) push(ctx context.Context, c *client, frame interface{}) {
	select {
	case c.send <- frame:
	case <-ctx.Done():
	}
}

// dispatch는 요청 하나를 처리하고 응답 프레임을 만듭니다.
func (s *Server) dispatch(ctx context.Context, req Request) Response {
	logger := s.logger.With().Str("request_id", req.ID).Str("op", req.Op).Logger()
	logger.Debug().Msg("[ipc] 요청 수신")

	result, err := s.handle(ctx, req)
	if err != nil {
		logger.Debug().Err(err).Msg("[ipc] 요청 실패")
		var bad *badRequestError
		if errors.As(err, &bad) {
			return Response{ID: req.ID, Error: &ErrorBody{Kind: KindBadRequest, Message: bad.msg}}
		}
		return Response{ID: req.ID, Error: errorBody(err)}
	}
	return Response{ID: req.ID, OK: true, Result: result}
}

// badRequestError는 프레임/파라미터 오류입니다.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// handle은 op에 맞는 Operations 메서드를 호출합니다.
// start/stop은 연결이 끊겨도 끝까지 진행됩니다.
func (s *Server) handle(ctx context.Context, req Request) (interface{}, error) {
	switch req.Op {
	case OpStartAPIServer:
		var p startParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		port := s.ops.DefaultPort()
		if p.Port != nil {
			if *p.Port < 1 || *p.Port > 65535 {
				return nil, badRequest("port out of range: %d", *p.Port)
			}
			port = uint16(*p.Port)
		}
		return s.ops.Start(context.WithoutCancel(ctx), port)

	case OpStopAPIServer:
		return s.ops.Stop(context.WithoutCancel(ctx))

	case OpCheckAPIServer:
		return s.ops.Status(), nil

	case OpGetAPIServerPort:
		return s.ops.Port(), nil

	case OpTestTool:
		var p testToolParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		if p.Name == "" {
			return nil, badRequest("tool name is required")
		}
		var args interface{}
		if len(p.Args) > 0 {
			args = p.Args
		}
		return s.ops.Invoke(ctx, p.Name, args)

	case OpGetStatus:
		return StatusResult{Worker: s.ops.Snapshot(), Metrics: s.ops.Stats()}, nil

	default:
		return nil, badRequest("unknown op: %q", req.Op)
	}
}

// decodeParams는 params를 v로 디코딩합니다. 비어 있으면 아무것도 하지 않습니다.
func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return badRequest("invalid params: %v", err)
	}
	return nil
}
