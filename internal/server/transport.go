package server

import (
	"bufio"
	"errors"
	"io"
	"sync"

	"github.com/gorilla/websocket"
)

// transport moves whole JSON-RPC payloads.
type transport interface {
	read() ([]byte, error)
	write(payload []byte) error
}

type stdioTransport struct {
	in  *bufio.Reader
	mu  sync.Mutex
	out *bufio.Writer
}

func newStdioTransport(in io.Reader, out io.Writer) *stdioTransport {
	return &stdioTransport{in: bufio.NewReader(in), out: bufio.NewWriter(out)}
}

func (t *stdioTransport) read() ([]byte, error) {
	return readMessage(t.in)
}

func (t *stdioTransport) write(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := writeMessage(t.out, payload); err != nil {
		return err
	}
	return t.out.Flush()
}

// wsTransport carries one payload per text frame.
type wsTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (t *wsTransport) read() ([]byte, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (t *wsTransport) write(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, payload)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
