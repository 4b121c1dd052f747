package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"streamchat/internal/logging"
	"streamchat/internal/protocol"
)

// Engine is the decision core of the chat service. It owns the session
// registry and the history log, and serializes every command through a
// single run loop: drivers talk to it exclusively over channels, so no
// matter how many connections are live, at most one command mutates shared
// state at a time.
type Engine struct {
	registry *Registry
	history  *History
	log      *logging.Logger

	sendBuffer int

	register   chan Transport
	unregister chan *Session
	inbound    chan inboundFrame

	subMu       sync.Mutex
	subscribers []chan Event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// inboundFrame is one decoded value read off a session's transport, queued
// for the run loop.
type inboundFrame struct {
	session *Session
	raw     json.RawMessage
}

// NewEngine creates an engine with its own registry and history. Multiple
// engines can coexist in one process; nothing is shared between them.
func NewEngine(cfg *Config, log *logging.Logger) *Engine {
	cfg.sanitize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		registry:   NewRegistry(),
		history:    NewHistory(),
		log:        log,
		sendBuffer: cfg.SendBuffer,
		register:   make(chan Transport),
		unregister: make(chan *Session),
		inbound:    make(chan inboundFrame),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Registry exposes the engine's session registry, primarily for tests.
func (e *Engine) Registry() *Registry { return e.registry }

// History exposes the engine's history log, primarily for tests.
func (e *Engine) History() *History { return e.history }

// Connect admits a new transport. The engine registers a session for it and
// drives its read and write pumps until the connection ends.
func (e *Engine) Connect(t Transport) {
	select {
	case e.register <- t:
	case <-e.ctx.Done():
		_ = t.Close()
	}
}

// Run processes registrations, departures and commands until Stop is called.
// It should run in its own goroutine.
func (e *Engine) Run() {
	defer close(e.done)

	for {
		select {
		case <-e.ctx.Done():
			return
		case t := <-e.register:
			e.admit(t)
		case s := <-e.unregister:
			e.drop(s)
		case f := <-e.inbound:
			e.dispatch(f)
		}
	}
}

// Stop shuts the run loop down. New connections are no longer admitted;
// live sessions are left alone and end on logout or disconnect.
func (e *Engine) Stop() {
	e.cancel()
	<-e.done
}

func (e *Engine) admit(t Transport) {
	s := e.registry.Register(t, e.sendBuffer)
	e.log.Success("%s connected.", s.Remote())
	e.publish(Event{Kind: EventConnected, Remote: s.Remote(), At: time.Now()})

	go e.readPump(s)
	go e.writePump(s)
}

// drop removes s from the registry and closes its send channel. Safe to
// reach twice; the second call finds nothing to remove.
func (e *Engine) drop(s *Session) {
	if !e.registry.Contains(s) {
		return
	}
	label := s.label()
	e.registry.Remove(s)
	e.log.Error("%s disconnected.", label)
	e.publish(Event{
		Kind:     EventDisconnected,
		Remote:   s.Remote(),
		Nickname: s.Nickname(),
		At:       time.Now(),
	})
}

// dispatch handles one decoded frame: validation, then the state-machine
// rules for the command it carries.
func (e *Engine) dispatch(f inboundFrame) {
	s := f.session
	if !e.registry.Contains(s) {
		// The session closed while the frame sat in the queue.
		return
	}

	cmd, err := protocol.ParseCommand(f.raw)
	if err != nil {
		e.deliver(s, protocol.NewError(err.Error()))
		return
	}

	switch cmd.Kind {
	case protocol.CmdHelp:
		e.deliver(s, protocol.NewInfo("You are on your own.", protocol.Server))
	case protocol.CmdLogout:
		e.drop(s)
	case protocol.CmdLogin:
		e.handleLogin(s, cmd.Content)
	case protocol.CmdNames:
		e.handleNames(s)
	case protocol.CmdMsg:
		e.handleMsg(s, cmd.Content)
	}
}

func (e *Engine) handleLogin(s *Session, nickname string) {
	if e.registry.IsAuthorized(s) {
		// A second login from an authorized session is deliberately ignored.
		return
	}

	if err := e.registry.Authorize(s, nickname); err != nil {
		e.deliver(s, protocol.NewError("That username is taken."))
		return
	}

	// Replay before the welcome, so the newcomer sees the room as it was.
	for _, entry := range e.history.Snapshot() {
		e.deliver(s, protocol.NewHistory(entry.Content, protocol.SessionSender(entry.Nickname), entry.At))
	}
	e.deliver(s, protocol.NewInfo("Welcome to the chat "+nickname+"!", protocol.Server))

	e.log.Info("%s is now in the chat.", nickname)
	e.publish(Event{Kind: EventAuthorized, Remote: s.Remote(), Nickname: nickname, At: time.Now()})
}

func (e *Engine) handleNames(s *Session) {
	if !e.registry.IsAuthorized(s) {
		e.deliver(s, protocol.NewError("Illegal command, you are not authorized."))
		return
	}
	// The listing includes every authorized nickname, the requester's own
	// included, in authorization order.
	e.deliver(s, protocol.NewInfo(e.registry.AuthorizedNicknames(), protocol.Server))
}

func (e *Engine) handleMsg(s *Session, content string) {
	if !e.registry.IsAuthorized(s) {
		e.deliver(s, protocol.NewError("Illegal command, you are not authorized."))
		return
	}

	nickname := s.Nickname()
	resp := protocol.NewMessage(content, protocol.SessionSender(nickname))
	e.history.Append(HistoryEntry{Content: content, Nickname: nickname, At: resp.Timestamp})

	frame, err := protocol.Encode(resp)
	if err != nil {
		e.log.Error("encode broadcast from %s: %v", nickname, err)
		return
	}

	// Fire-and-forget per recipient: a dead or slow peer is dropped, the
	// loop always reaches everyone else. The sender receives nothing.
	for _, peer := range e.registry.AuthorizedExcept(s) {
		if !peer.enqueue(frame) {
			e.drop(peer)
		}
	}

	e.log.Info("%s: %s", nickname, content)
	e.publish(Event{Kind: EventBroadcast, Remote: s.Remote(), Nickname: nickname, Content: content, At: resp.Timestamp})
}

// deliver queues one response for s without ever blocking. A session that
// cannot accept it is torn down like any dead peer.
func (e *Engine) deliver(s *Session, r protocol.Response) {
	frame, err := protocol.Encode(r)
	if err != nil {
		e.log.Error("encode response for %s: %v", s.label(), err)
		return
	}
	if !s.enqueue(frame) {
		e.drop(s)
	}
}
