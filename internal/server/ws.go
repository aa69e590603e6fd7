package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to WebSocket connections, each served
// by its own Server with its own sessions.
type Handler struct {
	opts     Options
	upgrader websocket.Upgrader
	ctx      context.Context
}

// NewHandler returns a WebSocket handler. Connections end when ctx is done.
func NewHandler(ctx context.Context, opts Options) *Handler {
	return &Handler{
		opts: opts,
		ctx:  ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// клиенты локальные: редакторы и браузерные вьюхи
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	srv := newServer(&wsTransport{conn: conn}, h.opts)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, ErrExit) && !errors.Is(err, context.Canceled) {
		srv.logf("websocket %s: %v", r.RemoteAddr, err)
	}
}

// ListenAndServe serves WebSocket JSON-RPC on addr until ctx is done.
// ready, when non-nil, receives the bound address.
func ListenAndServe(ctx context.Context, addr string, opts Options, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if ready != nil {
		ready(ln.Addr())
	}
	srv := &http.Server{
		Handler:           NewHandler(ctx, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
