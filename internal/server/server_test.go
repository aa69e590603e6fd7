package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"aquascope/internal/session"
	"aquascope/internal/source"
	"aquascope/internal/tag"
)

const program = "fn main() {\n    let a = 1;\n    let b = &a;\n    println!(\"{b}\");\n}"

const analysisJSON = `{
  "loan_points": {"bw0": {"char_start": 39, "char_end": 41}},
  "loan_regions": {"bw0": {"refined_ranges": [{"char_start": 47, "char_end": 62}]}},
  "move_points": {"mv0": {"char_start": 20, "char_end": 21}},
  "move_regions": {},
  "boundaries": []
}`

func testOptions() Options {
	return Options{
		Session: session.Options{Tags: tag.NewSeeded(3), TagLength: 8},
		Log:     io.Discard,
	}
}

func request(t *testing.T, id int, method string, params any) *rpcMessage {
	t.Helper()
	msg := &rpcMessage{JSONRPC: "2.0", Method: method}
	if id > 0 {
		msg.ID = json.RawMessage(strconv.Itoa(id))
	}
	if params != nil {
		msg.Params = mustJSON(t, params)
	}
	return msg
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// next reads exactly one framed message written to out.
func next(t *testing.T, out *bytes.Buffer) rpcMessage {
	t.Helper()
	payload, err := readMessage(bufio.NewReader(out))
	require.NoError(t, err)
	var msg rpcMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func call(t *testing.T, s *Server, out *bytes.Buffer, msg *rpcMessage) rpcMessage {
	t.Helper()
	require.NoError(t, s.handleMessage(context.Background(), msg))
	resp := next(t, out)
	require.Equal(t, string(msg.ID), string(resp.ID))
	return resp
}

func openSession(t *testing.T, s *Server, out *bytes.Buffer) openResult {
	t.Helper()
	resp := call(t, s, out, request(t, 1, "session/open", map[string]any{
		"text":     program,
		"analysis": json.RawMessage(analysisJSON),
	}))
	require.Nil(t, resp.Error)
	var res openResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	return res
}

func markup(t *testing.T, s *Server, out *bytes.Buffer, id int, sess, format string) markupResult {
	t.Helper()
	resp := call(t, s, out, request(t, id, "view/markup", markupParams{Session: sess, Format: format}))
	require.Nil(t, resp.Error)
	var res markupResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	return res
}

func TestSessionLifecycle(t *testing.T) {
	var out bytes.Buffer
	s := New(bytes.NewReader(nil), &out, testOptions())

	opened := openSession(t, s, &out)
	require.Equal(t, []string{"bw0"}, opened.Loans)
	require.Equal(t, []string{"mv0"}, opened.Moves)
	require.Equal(t, []string{opened.Session}, s.Sessions())

	before := markup(t, s, &out, 2, opened.Session, "")
	require.Equal(t, "html", before.Format)
	require.Contains(t, before.Markup, `class="aquascope-loan"`)
	require.NotContains(t, before.Markup, "show-hidden")
	require.Len(t, before.Tags, 3)

	key := "bw0"
	resp := call(t, s, &out, request(t, 3, "facts/show", toggleParams{
		Session: opened.Session, Namespace: "loan", Key: &key, Classes: []string{"focus"},
	}))
	require.Nil(t, resp.Error)
	shown := markup(t, s, &out, 4, opened.Session, "html")
	require.Contains(t, shown.Markup, `class="aquascope-live-region focus show-hidden"`)

	resp = call(t, s, &out, request(t, 5, "document/change", changeParams{
		Session: opened.Session,
		Changes: []source.Change{{From: 0, To: 0, Insert: "// x\n"}},
	}))
	require.Nil(t, resp.Error)
	var changed changeResult
	require.NoError(t, json.Unmarshal(resp.Result, &changed))
	require.Equal(t, uint32(len(program)+5), changed.Length)

	edited := markup(t, s, &out, 6, opened.Session, "html")
	require.True(t, strings.HasPrefix(edited.Markup, `<div class="aquascope" data-session=`))
	require.Contains(t, edited.Markup, "// x")
	require.Contains(t, edited.Markup, "show-hidden")

	resp = call(t, s, &out, request(t, 7, "facts/hide", toggleParams{
		Session: opened.Session, Namespace: "loan", Key: &key, Classes: []string{"focus"},
	}))
	require.Nil(t, resp.Error)
	hidden := markup(t, s, &out, 8, opened.Session, "html")
	require.NotContains(t, hidden.Markup, "show-hidden")

	resp = call(t, s, &out, request(t, 9, "lines/hide", hideLineParams{Session: opened.Session, Line: 1}))
	require.Nil(t, resp.Error)
	require.Contains(t, markup(t, s, &out, 10, opened.Session, "html").Markup, "hidden-line")

	resp = call(t, s, &out, request(t, 11, "facts/clear", sessionParams{Session: opened.Session}))
	require.Nil(t, resp.Error)
	require.NotContains(t, markup(t, s, &out, 12, opened.Session, "html").Markup, "aquascope-loan")

	resp = call(t, s, &out, request(t, 13, "facts/reanalyze", reanalyzeParams{
		Session: opened.Session, Analysis: json.RawMessage(analysisJSON),
	}))
	require.Nil(t, resp.Error)
	require.Contains(t, markup(t, s, &out, 14, opened.Session, "html").Markup, "aquascope-loan")

	resp = call(t, s, &out, request(t, 15, "session/close", sessionParams{Session: opened.Session}))
	require.Nil(t, resp.Error)
	require.Empty(t, s.Sessions())

	resp = call(t, s, &out, request(t, 16, "shutdown", nil))
	require.Nil(t, resp.Error)
	require.ErrorIs(t, s.handleMessage(context.Background(), request(t, 0, "exit", nil)), ErrExit)
}

func TestOpenWithoutAnalysis(t *testing.T) {
	var out bytes.Buffer
	s := New(bytes.NewReader(nil), &out, testOptions())

	resp := call(t, s, &out, request(t, 1, "session/open", map[string]any{"text": "plain"}))
	require.Nil(t, resp.Error)
	var res openResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.Empty(t, res.Loans)
	require.Empty(t, res.Moves)

	ansi := markup(t, s, &out, 2, res.Session, "ansi")
	require.Contains(t, ansi.Markup, "plain")
}

func TestRequestErrors(t *testing.T) {
	var out bytes.Buffer
	s := New(bytes.NewReader(nil), &out, testOptions())
	opened := openSession(t, s, &out)

	tests := []struct {
		name string
		msg  *rpcMessage
		code int
	}{
		{name: "unknown method", msg: request(t, 2, "nope", nil), code: codeMethodNotFound},
		{name: "missing params", msg: request(t, 3, "facts/show", nil), code: codeInvalidParams},
		{name: "bad namespace", msg: request(t, 4, "facts/show", toggleParams{Session: opened.Session, Namespace: "borrow"}), code: codeInvalidParams},
		{name: "unknown session", msg: request(t, 5, "facts/clear", sessionParams{Session: "nope"}), code: codeUnknownSession},
		{name: "bad analysis", msg: request(t, 6, "session/open", map[string]any{"text": "x", "analysis": json.RawMessage(`{"loan_points": 1}`)}), code: codeInvalidParams},
		{name: "no text", msg: request(t, 7, "session/open", map[string]any{}), code: codeInvalidParams},
		{name: "bad format", msg: request(t, 8, "view/markup", markupParams{Session: opened.Session, Format: "pdf"}), code: codeInvalidParams},
		{name: "line out of range", msg: request(t, 9, "lines/hide", hideLineParams{Session: opened.Session, Line: 40}), code: codeRequestFailed},
		{name: "change past end", msg: request(t, 10, "document/change", changeParams{Session: opened.Session, Changes: []source.Change{{From: 0, To: 1000}}}), code: codeRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, s, &out, tt.msg)
			require.NotNil(t, resp.Error)
			require.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRunStopsOnExit(t *testing.T) {
	tests := []struct {
		name     string
		messages []string
		want     error
		replies  int
	}{
		{
			name:     "exit after shutdown",
			messages: []string{`{"jsonrpc":"2.0","id":1,"method":"shutdown"}`, `{"jsonrpc":"2.0","method":"exit"}`},
			want:     ErrExit,
			replies:  1,
		},
		{
			name:     "exit without shutdown",
			messages: []string{`{"jsonrpc":"2.0","id":1,"method":"nope"}`, `{"jsonrpc":"2.0","method":"exit"}`},
			want:     ErrExitWithoutShutdown,
			replies:  1,
		},
		{
			name:     "end of stream",
			messages: []string{`not json`, `{"jsonrpc":"2.0","result":{}}`},
			replies:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in, out bytes.Buffer
			for _, m := range tt.messages {
				require.NoError(t, writeMessage(&in, []byte(m)))
			}
			err := New(&in, &out, testOptions()).Run(context.Background())
			if tt.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.want)
			}
			reader := bufio.NewReader(&out)
			for i := 0; i < tt.replies; i++ {
				_, err := readMessage(reader)
				require.NoError(t, err)
			}
			_, err = readMessage(reader)
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestRunReleasesSessions(t *testing.T) {
	var in, out bytes.Buffer
	open := request(t, 1, "session/open", map[string]any{"text": program})
	require.NoError(t, writeMessage(&in, mustJSON(t, open)))

	before := OpenSessions()
	s := New(&in, &out, testOptions())
	require.NoError(t, s.Run(context.Background()))
	require.Nil(t, next(t, &out).Error)
	require.Empty(t, s.Sessions())
	require.Equal(t, before, OpenSessions())
}

func TestChangeNotificationDebounced(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions()
	opts.Debounce = time.Hour
	s := New(bytes.NewReader(nil), &out, opts)
	opened := openSession(t, s, &out)

	for i, insert := range []string{"a", "b"} {
		resp := call(t, s, &out, request(t, 2+i, "document/change", changeParams{
			Session: opened.Session,
			Changes: []source.Change{{Insert: insert}},
		}))
		require.Nil(t, resp.Error)
	}

	s.mu.Lock()
	timer := s.pending[opened.Session]
	gen := s.notifyGeneration[opened.Session]
	s.mu.Unlock()
	require.NotNil(t, timer)
	require.Equal(t, 2, gen)
	timer.Stop()

	// устаревшее поколение ничего не шлёт
	s.publishChanged(opened.Session, gen-1)
	require.Zero(t, out.Len())

	s.publishChanged(opened.Session, gen)
	note := next(t, &out)
	require.Equal(t, ChangedMethod, note.Method)
	require.Empty(t, note.ID)
	var res markupResult
	require.NoError(t, json.Unmarshal(note.Params, &res))
	require.Equal(t, opened.Session, res.Session)
	require.Contains(t, res.Markup, "bafn main")
}

func TestChangeNotificationOnlyForLiveSessions(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions()
	opts.Debounce = time.Hour
	s := New(bytes.NewReader(nil), &out, opts)

	resp := call(t, s, &out, request(t, 1, "document/change", changeParams{
		Session: "missing",
		Changes: []source.Change{{Insert: "x"}},
	}))
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnknownSession, resp.Error.Code)

	before := OpenSessions()
	opened := openSession(t, s, &out)
	require.Equal(t, before+1, OpenSessions())
	resp = call(t, s, &out, request(t, 2, "document/change", changeParams{
		Session: opened.Session,
		Changes: []source.Change{{Insert: "y"}},
	}))
	require.Nil(t, resp.Error)

	resp = call(t, s, &out, request(t, 3, "session/close", sessionParams{Session: opened.Session}))
	require.Nil(t, resp.Error)
	require.Equal(t, before, OpenSessions())

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Empty(t, s.pending)
	require.Empty(t, s.notifyGeneration)
}

func TestWebSocketTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(NewHandler(ctx, testOptions()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, mustJSON(t, request(t, 1, "session/open", map[string]any{
		"text":     program,
		"analysis": json.RawMessage(analysisJSON),
	}))))
	var resp rpcMessage
	require.NoError(t, conn.ReadJSON(&resp))
	require.Nil(t, resp.Error)
	var opened openResult
	require.NoError(t, json.Unmarshal(resp.Result, &opened))
	require.Equal(t, []string{"bw0"}, opened.Loans)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, mustJSON(t, request(t, 2, "view/markup", markupParams{Session: opened.Session}))))
	resp = rpcMessage{}
	require.NoError(t, conn.ReadJSON(&resp))
	require.Nil(t, resp.Error)
	var view markupResult
	require.NoError(t, json.Unmarshal(resp.Result, &view))
	require.Contains(t, view.Markup, "aquascope-loan")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, mustJSON(t, request(t, 3, "shutdown", nil))))
	resp = rpcMessage{}
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "3", string(resp.ID))
}
