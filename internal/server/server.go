// Package server exposes sessions over JSON-RPC 2.0, framed with
// Content-Length headers on stdio or carried in WebSocket text frames.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"aquascope/internal/facts"
	"aquascope/internal/session"
	"aquascope/internal/source"
	"aquascope/internal/view"
)

var (
	// ErrExit is returned by Run after an exit notification that followed shutdown.
	ErrExit = errors.New("server exit")
	// ErrExitWithoutShutdown is returned when exit arrives before shutdown.
	ErrExitWithoutShutdown = errors.New("server exit without shutdown")
)

// openSessions counts sessions held by every server in the process.
var openSessions atomic.Int64

// OpenSessions returns the number of sessions currently open over all
// connections.
func OpenSessions() int {
	return int(openSessions.Load())
}

// ChangedMethod is the notification sent after edits settle.
const ChangedMethod = "view/changed"

// Options configure every connection the server accepts.
type Options struct {
	Session session.Options
	Theme   view.Theme
	// Debounce delays view/changed notifications after document/change.
	// Zero disables them.
	Debounce time.Duration
	Log      io.Writer
}

// Server handles one JSON-RPC connection.
type Server struct {
	tr   transport
	opts Options

	mu               sync.Mutex
	sessions         map[string]*session.Session
	shutdown         bool
	pending          map[string]*time.Timer
	notifyGeneration map[string]int
}

// New serves JSON-RPC over the given streams.
func New(in io.Reader, out io.Writer, opts Options) *Server {
	return newServer(newStdioTransport(in, out), opts)
}

func newServer(tr transport, opts Options) *Server {
	if opts.Log == nil {
		opts.Log = os.Stderr
	}
	return &Server{
		tr:               tr,
		opts:             opts,
		sessions:         make(map[string]*session.Session),
		pending:          make(map[string]*time.Timer),
		notifyGeneration: make(map[string]int),
	}
}

// Run reads requests until the stream ends, ctx is cancelled or exit arrives.
func (s *Server) Run(ctx context.Context) error {
	defer s.release()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := s.tr.read()
		if err != nil {
			if isEOF(err) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("invalid json: %v", err)
			s.sendError(nil, codeParseError, "parse error")
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(ctx, &msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *rpcMessage) error {
	switch msg.Method {
	case "session/open":
		s.handleOpen(ctx, msg)
	case "session/close":
		s.handleClose(msg)
	case "document/change":
		s.handleChange(ctx, msg)
	case "facts/reanalyze":
		s.handleReanalyze(ctx, msg)
	case "facts/show":
		s.handleToggle(ctx, msg, true)
	case "facts/hide":
		s.handleToggle(ctx, msg, false)
	case "facts/clear":
		s.handleClear(ctx, msg)
	case "lines/hide":
		s.handleHideLine(ctx, msg)
	case "view/markup":
		s.handleMarkup(msg)
	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		s.sendResponse(msg.ID, nil)
	case "exit":
		s.mu.Lock()
		done := s.shutdown
		s.mu.Unlock()
		if done {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	default:
		if len(msg.ID) > 0 {
			s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
	}
	return nil
}

type openParams struct {
	Text     *string         `json:"text,omitempty"`
	Path     string          `json:"path,omitempty"`
	Analysis json.RawMessage `json:"analysis,omitempty"`
}

type openResult struct {
	Session string   `json:"session"`
	Loans   []string `json:"loans"`
	Moves   []string `json:"moves"`
}

func (s *Server) handleOpen(ctx context.Context, msg *rpcMessage) {
	var params openParams
	if !s.decode(msg, &params) {
		return
	}
	var text *source.Text
	switch {
	case params.Text != nil:
		text = source.NewText(*params.Text)
	case params.Path != "":
		loaded, err := source.Load(params.Path)
		if err != nil {
			s.sendError(msg.ID, codeRequestFailed, err.Error())
			return
		}
		text = loaded
	default:
		s.sendError(msg.ID, codeInvalidParams, "text or path is required")
		return
	}
	out, ok := s.analysis(msg, params.Analysis)
	if !ok {
		return
	}
	sess, err := session.Open(ctx, text, out, s.opts.Session)
	if err != nil {
		s.sendError(msg.ID, codeRequestFailed, err.Error())
		return
	}
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	openSessions.Add(1)
	s.sendResponse(msg.ID, describe(sess))
}

func describe(sess *session.Session) openResult {
	res := openResult{Session: sess.ID(), Loans: []string{}, Moves: []string{}}
	if af := sess.Facts(); af != nil {
		res.Loans = append(res.Loans, af.Keys(facts.NamespaceLoan)...)
		res.Moves = append(res.Moves, af.Keys(facts.NamespaceMove)...)
	}
	return res
}

// analysis decodes an optional analysis payload; a missing one opens the
// document without facts.
func (s *Server) analysis(msg *rpcMessage, raw json.RawMessage) (*facts.AnalysisOutput, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, true
	}
	out, err := facts.Decode(raw)
	if err != nil {
		s.sendError(msg.ID, codeInvalidParams, err.Error())
		return nil, false
	}
	return out, true
}

type sessionParams struct {
	Session string `json:"session"`
}

func (s *Server) handleClose(msg *rpcMessage) {
	var params sessionParams
	if !s.decode(msg, &params) {
		return
	}
	s.mu.Lock()
	_, ok := s.sessions[params.Session]
	delete(s.sessions, params.Session)
	if t := s.pending[params.Session]; t != nil {
		t.Stop()
		delete(s.pending, params.Session)
	}
	delete(s.notifyGeneration, params.Session)
	s.mu.Unlock()
	if !ok {
		s.sendError(msg.ID, codeUnknownSession, "unknown session")
		return
	}
	openSessions.Add(-1)
	s.sendResponse(msg.ID, nil)
}

type changeParams struct {
	Session string          `json:"session"`
	Changes []source.Change `json:"changes"`
}

type changeResult struct {
	Length uint32 `json:"length"`
}

func (s *Server) handleChange(ctx context.Context, msg *rpcMessage) {
	var params changeParams
	if !s.decode(msg, &params) {
		return
	}
	edited := false
	err := s.withSession(msg, params.Session, func(sess *session.Session) error {
		if err := sess.Edit(ctx, params.Changes...); err != nil {
			return err
		}
		edited = true
		s.sendResponse(msg.ID, changeResult{Length: sess.Doc().Len()})
		return nil
	})
	if err != nil {
		s.sendError(msg.ID, codeRequestFailed, err.Error())
		return
	}
	if edited {
		s.scheduleChanged(params.Session)
	}
}

type reanalyzeParams struct {
	Session  string          `json:"session"`
	Analysis json.RawMessage `json:"analysis"`
}

func (s *Server) handleReanalyze(ctx context.Context, msg *rpcMessage) {
	var params reanalyzeParams
	if !s.decode(msg, &params) {
		return
	}
	out, ok := s.analysis(msg, params.Analysis)
	if !ok {
		return
	}
	if out == nil {
		s.sendError(msg.ID, codeInvalidParams, "analysis is required")
		return
	}
	err := s.withSession(msg, params.Session, func(sess *session.Session) error {
		if err := sess.Reanalyze(ctx, out); err != nil {
			return err
		}
		s.sendResponse(msg.ID, describe(sess))
		return nil
	})
	if err != nil {
		s.sendError(msg.ID, codeRequestFailed, err.Error())
	}
}

type toggleParams struct {
	Session   string   `json:"session"`
	Namespace string   `json:"namespace"`
	Key       *string  `json:"key"`
	Classes   []string `json:"classes,omitempty"`
}

func (s *Server) handleToggle(ctx context.Context, msg *rpcMessage, show bool) {
	var params toggleParams
	if !s.decode(msg, &params) {
		return
	}
	ns, err := facts.ParseNamespace(params.Namespace)
	if err != nil {
		s.sendError(msg.ID, codeInvalidParams, err.Error())
		return
	}
	_ = s.withSession(msg, params.Session, func(sess *session.Session) error {
		if show {
			sess.Show(ctx, ns, params.Key, params.Classes...)
		} else {
			sess.Hide(ctx, ns, params.Key, params.Classes...)
		}
		s.sendResponse(msg.ID, nil)
		return nil
	})
}

func (s *Server) handleClear(ctx context.Context, msg *rpcMessage) {
	var params sessionParams
	if !s.decode(msg, &params) {
		return
	}
	err := s.withSession(msg, params.Session, func(sess *session.Session) error {
		if err := sess.Clear(ctx); err != nil {
			return err
		}
		s.sendResponse(msg.ID, nil)
		return nil
	})
	if err != nil {
		s.sendError(msg.ID, codeRequestFailed, err.Error())
	}
}

type hideLineParams struct {
	Session string `json:"session"`
	Line    int    `json:"line"`
}

func (s *Server) handleHideLine(ctx context.Context, msg *rpcMessage) {
	var params hideLineParams
	if !s.decode(msg, &params) {
		return
	}
	err := s.withSession(msg, params.Session, func(sess *session.Session) error {
		if err := sess.HideLine(ctx, params.Line); err != nil {
			return err
		}
		s.sendResponse(msg.ID, nil)
		return nil
	})
	if err != nil {
		s.sendError(msg.ID, codeRequestFailed, err.Error())
	}
}

type markupParams struct {
	Session string `json:"session"`
	Format  string `json:"format,omitempty"`
}

type markupResult struct {
	Session string   `json:"session"`
	Format  string   `json:"format"`
	Markup  string   `json:"markup"`
	Tags    []string `json:"tags"`
}

func (s *Server) handleMarkup(msg *rpcMessage) {
	var params markupParams
	if !s.decode(msg, &params) {
		return
	}
	format := strings.ToLower(strings.TrimSpace(params.Format))
	if format == "" {
		format = "html"
	}
	if format != "html" && format != "ansi" {
		s.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("unknown format %q", params.Format))
		return
	}
	err := s.withSession(msg, params.Session, func(sess *session.Session) error {
		res, err := s.markup(sess, format)
		if err != nil {
			return err
		}
		s.sendResponse(msg.ID, res)
		return nil
	})
	if err != nil {
		s.sendError(msg.ID, codeRequestFailed, err.Error())
	}
}

func (s *Server) markup(sess *session.Session, format string) (markupResult, error) {
	res := markupResult{Session: sess.ID(), Format: format, Tags: sess.Tree().Tags()}
	if format == "ansi" {
		res.Markup = sess.ANSI(s.opts.Theme)
		return res, nil
	}
	var sb strings.Builder
	if err := sess.Markup(&sb); err != nil {
		return res, err
	}
	res.Markup = sb.String()
	return res, nil
}

// withSession runs fn with the connection lock held. Unknown sessions are
// answered here and reported as a nil error.
func (s *Server) withSession(msg *rpcMessage, id string, fn func(*session.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		s.sendError(msg.ID, codeUnknownSession, "unknown session")
		return nil
	}
	return fn(sess)
}

func (s *Server) decode(msg *rpcMessage, into any) bool {
	if len(msg.Params) == 0 {
		s.sendError(msg.ID, codeInvalidParams, "invalid params")
		return false
	}
	if err := json.Unmarshal(msg.Params, into); err != nil {
		s.logf("invalid %s params: %v", msg.Method, err)
		s.sendError(msg.ID, codeInvalidParams, "invalid params")
		return false
	}
	return true
}

// scheduleChanged restarts the debounce timer of one session.
func (s *Server) scheduleChanged(id string) {
	if s.opts.Debounce <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.pending[id]; t != nil {
		t.Stop()
	}
	s.notifyGeneration[id]++
	gen := s.notifyGeneration[id]
	s.pending[id] = time.AfterFunc(s.opts.Debounce, func() {
		s.publishChanged(id, gen)
	})
}

func (s *Server) publishChanged(id string, gen int) {
	s.mu.Lock()
	if s.notifyGeneration[id] != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	res, err := s.markup(sess, "html")
	s.mu.Unlock()
	if err != nil {
		s.logf("render %s: %v", id, err)
		return
	}
	s.sendNotification(ChangedMethod, res)
}

// release stops pending notifications and drops the connection's sessions.
func (s *Server) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	openSessions.Add(-int64(len(s.sessions)))
	clear(s.sessions)
	clear(s.notifyGeneration)
}

// Sessions lists open session ids.
func (s *Server) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) sendResponse(id json.RawMessage, result any) {
	if len(id) == 0 {
		return
	}
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	s.send(payload)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	s.send(payload)
}

func (s *Server) sendNotification(method string, params any) {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
	s.send(payload)
}

func (s *Server) send(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logf("failed to marshal payload: %v", err)
		return
	}
	if err := s.tr.write(data); err != nil {
		s.logf("failed to write payload: %v", err)
	}
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(s.opts.Log, "aquascope: "+format+"\n", args...)
}
