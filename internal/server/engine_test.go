package server_test

import (
	"io"
	"reflect"
	"testing"
	"time"

	"streamchat/internal/logging"
	"streamchat/internal/protocol"
	"streamchat/internal/server"
)

func newTestEngine(t *testing.T) *server.Engine {
	t.Helper()
	log := logging.New(logging.LevelError)
	log.SetOutput(io.Discard)

	engine := server.NewEngine(server.NewConfig(), log)
	go engine.Run()
	t.Cleanup(engine.Stop)
	return engine
}

// connect admits a fake transport and waits until its session is live.
func connect(t *testing.T, engine *server.Engine, remote string) *fakeTransport {
	t.Helper()
	before := engine.Registry().Len()
	tr := newFakeTransport(remote)
	engine.Connect(tr)
	waitFor(t, func() bool { return engine.Registry().Len() > before }, "session never registered")
	return tr
}

// login connects and authorizes a session, consuming the welcome response.
func login(t *testing.T, engine *server.Engine, nickname string) *fakeTransport {
	t.Helper()
	tr := connect(t, engine, "127.0.0.1:"+nickname)
	tr.send(t, "login", nickname)
	resp := tr.next(t)
	if resp.Kind != protocol.RespInfo {
		t.Fatalf("login response kind = %v, want info", resp.Kind)
	}
	return tr
}

func TestLoginWelcomesNewcomer(t *testing.T) {
	engine := newTestEngine(t)
	tr := connect(t, engine, "127.0.0.1:4001")

	tr.send(t, "login", "mike")

	resp := tr.next(t)
	if resp.Kind != protocol.RespInfo {
		t.Fatalf("response kind = %v, want info", resp.Kind)
	}
	if resp.ContentText() != "Welcome to the chat mike!" {
		t.Errorf("content = %q, want welcome message", resp.ContentText())
	}
	if resp.Sender.String() != "server" {
		t.Errorf("sender = %q, want server", resp.Sender)
	}
	if got := engine.Registry().AuthorizedNicknames(); !reflect.DeepEqual(got, []string{"mike"}) {
		t.Errorf("AuthorizedNicknames = %v, want [mike]", got)
	}
}

func TestLoginTakenNickname(t *testing.T) {
	engine := newTestEngine(t)
	login(t, engine, "mike")

	second := connect(t, engine, "127.0.0.1:4002")
	second.send(t, "login", "mike")

	resp := second.next(t)
	if resp.Kind != protocol.RespError {
		t.Fatalf("response kind = %v, want error", resp.Kind)
	}
	if resp.ContentText() != "That username is taken." {
		t.Errorf("content = %q, want taken message", resp.ContentText())
	}
	if len(engine.Registry().AuthorizedNicknames()) != 1 {
		t.Error("second session got authorized despite the collision")
	}
}

// TestHistoryReplay: after three broadcasts, a newcomer receives exactly
// three history responses in send order, then the welcome.
func TestHistoryReplay(t *testing.T) {
	engine := newTestEngine(t)
	mike := login(t, engine, "mike")

	contents := []string{"heyyoo", "mayooo", "im a fishcake"}
	for _, content := range contents {
		mike.send(t, "msg", content)
	}
	waitFor(t, func() bool { return engine.History().Len() == len(contents) }, "history never filled")

	eirik := connect(t, engine, "127.0.0.1:4003")
	eirik.send(t, "login", "eirik")

	for i, want := range contents {
		resp := eirik.next(t)
		if resp.Kind != protocol.RespHistory {
			t.Fatalf("response %d kind = %v, want history", i, resp.Kind)
		}
		if resp.ContentText() != want {
			t.Errorf("history %d content = %q, want %q", i, resp.ContentText(), want)
		}
		if resp.Sender.String() != "mike" {
			t.Errorf("history %d sender = %q, want mike", i, resp.Sender)
		}
	}

	welcome := eirik.next(t)
	if welcome.Kind != protocol.RespInfo {
		t.Errorf("post-history response kind = %v, want the welcome info", welcome.Kind)
	}
}

// TestBroadcastSelfExclusion: authorized peers receive the message, the
// sender and unauthorized sessions receive nothing.
func TestBroadcastSelfExclusion(t *testing.T) {
	engine := newTestEngine(t)
	mike := login(t, engine, "mike")
	thor := login(t, engine, "thor")
	eirik := connect(t, engine, "127.0.0.1:4004") // stays unauthorized

	mike.send(t, "msg", "hello everybody")

	resp := thor.next(t)
	if resp.Kind != protocol.RespMessage {
		t.Fatalf("thor response kind = %v, want message", resp.Kind)
	}
	if resp.ContentText() != "hello everybody" {
		t.Errorf("thor content = %q, want %q", resp.ContentText(), "hello everybody")
	}
	if resp.Sender.String() != "mike" {
		t.Errorf("thor sender = %q, want mike", resp.Sender)
	}

	mike.expectNone(t)
	eirik.expectNone(t)
}

func TestUnauthorizedGating(t *testing.T) {
	engine := newTestEngine(t)

	for _, request := range []string{"names", "msg"} {
		tr := connect(t, engine, "127.0.0.1:4005")

		content := any(nil)
		if request == "msg" {
			content = "sneaky"
		}
		tr.send(t, request, content)

		resp := tr.next(t)
		if resp.Kind != protocol.RespError {
			t.Fatalf("%s response kind = %v, want error", request, resp.Kind)
		}
		if resp.ContentText() != "Illegal command, you are not authorized." {
			t.Errorf("%s content = %q", request, resp.ContentText())
		}
		tr.expectNone(t)

		if engine.History().Len() != 0 {
			t.Errorf("%s from unauthorized session mutated history", request)
		}
		if len(engine.Registry().AuthorizedNicknames()) != 0 {
			t.Errorf("%s from unauthorized session mutated the registry", request)
		}
	}
}

func TestHelpInAnyState(t *testing.T) {
	engine := newTestEngine(t)

	tr := connect(t, engine, "127.0.0.1:4006")
	tr.send(t, "help", nil)
	if got := tr.next(t).ContentText(); got != "You are on your own." {
		t.Errorf("unauthorized help = %q", got)
	}

	mike := login(t, engine, "mike")
	mike.send(t, "help", nil)
	if got := mike.next(t).ContentText(); got != "You are on your own." {
		t.Errorf("authorized help = %q", got)
	}
}

func TestLogoutClosesSession(t *testing.T) {
	engine := newTestEngine(t)
	mike := login(t, engine, "mike")

	mike.send(t, "logout", nil)

	mike.waitClosed(t)
	waitFor(t, func() bool { return engine.Registry().Len() == 0 }, "session never removed")
	mike.expectNone(t) // logout produces no response
}

// TestLoginWhileAuthorizedIsIgnored: a second login from an authorized
// session produces no response and no state change; the next command is
// answered as usual.
func TestLoginWhileAuthorizedIsIgnored(t *testing.T) {
	engine := newTestEngine(t)
	mike := login(t, engine, "mike")

	mike.send(t, "login", "mike2")
	mike.send(t, "help", nil)

	resp := mike.next(t)
	if resp.ContentText() != "You are on your own." {
		t.Errorf("response after re-login = %q, want the help text", resp.ContentText())
	}
	if got := engine.Registry().AuthorizedNicknames(); !reflect.DeepEqual(got, []string{"mike"}) {
		t.Errorf("AuthorizedNicknames = %v, want [mike]", got)
	}
}

// TestNamesListsEveryAuthorizedNickname: the listing includes the requester
// and follows authorization order.
func TestNamesListing(t *testing.T) {
	engine := newTestEngine(t)
	mike := login(t, engine, "mike")
	login(t, engine, "thor")

	mike.send(t, "names", nil)

	resp := mike.next(t)
	if resp.Kind != protocol.RespInfo {
		t.Fatalf("names response kind = %v, want info", resp.Kind)
	}
	if !reflect.DeepEqual(resp.Content, []string{"mike", "thor"}) {
		t.Errorf("names content = %v, want [mike thor]", resp.Content)
	}
}

func TestCommandErrorsKeepSessionOpen(t *testing.T) {
	engine := newTestEngine(t)
	tr := connect(t, engine, "127.0.0.1:4007")

	tr.send(t, "dance", nil)
	if resp := tr.next(t); resp.Kind != protocol.RespError {
		t.Errorf("unknown command response kind = %v, want error", resp.Kind)
	}

	tr.send(t, "msg", nil)
	if got := tr.next(t).ContentText(); got != "Missing argument." {
		t.Errorf("missing argument response = %q", got)
	}

	if engine.Registry().Len() != 1 {
		t.Error("recoverable command errors closed the session")
	}
}

// TestDecodeErrorTearsDownSession: malformed bytes yield one error response
// mentioning the format violation, then the connection is closed for good.
func TestDecodeErrorTearsDownSession(t *testing.T) {
	engine := newTestEngine(t)
	tr := connect(t, engine, "127.0.0.1:4008")

	tr.failDecode()

	resp := tr.next(t)
	if resp.Kind != protocol.RespError {
		t.Fatalf("response kind = %v, want error", resp.Kind)
	}
	if resp.ContentText() != "Wrong data format. Must be valid JSON." {
		t.Errorf("content = %q, want format violation message", resp.ContentText())
	}

	tr.waitClosed(t)
	waitFor(t, func() bool { return engine.Registry().Len() == 0 }, "session never removed")
	tr.expectNone(t)
}

func TestEngineEvents(t *testing.T) {
	engine := newTestEngine(t)
	events := engine.Subscribe()

	mike := login(t, engine, "mike")
	login(t, engine, "thor")
	mike.send(t, "msg", "hello")
	waitFor(t, func() bool { return engine.History().Len() == 1 }, "broadcast never happened")
	mike.send(t, "logout", nil)
	mike.waitClosed(t)

	want := []server.EventKind{
		server.EventConnected,
		server.EventAuthorized,
		server.EventConnected,
		server.EventAuthorized,
		server.EventBroadcast,
		server.EventDisconnected,
	}
	for i, kind := range want {
		select {
		case ev := <-events:
			if ev.Kind != kind {
				t.Fatalf("event %d kind = %v, want %v", i, ev.Kind, kind)
			}
			if kind == server.EventBroadcast && (ev.Nickname != "mike" || ev.Content != "hello") {
				t.Errorf("broadcast event = %+v, want mike/hello", ev)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d (%v)", i, kind)
		}
	}
}

// TestIndependentEngines: two engines in one process share nothing.
func TestIndependentEngines(t *testing.T) {
	first := newTestEngine(t)
	second := newTestEngine(t)

	login(t, first, "mike")

	tr := connect(t, second, "127.0.0.1:4009")
	tr.send(t, "login", "mike")
	if resp := tr.next(t); resp.Kind != protocol.RespInfo {
		t.Errorf("same nickname on a second engine was rejected: %v", resp.ContentText())
	}
}
