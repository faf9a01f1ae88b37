package chat

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"wschat/internal/configs"
)

// fakeConn records every frame it is sent.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	err    error
	kicks  []string
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, append([]byte(nil), msg...))
	return nil
}

func (f *fakeConn) Kick(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.kicks = append(f.kicks, reason)
}

func (f *fakeConn) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

func (f *fakeConn) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.frames))
	for i, frame := range f.frames {
		out[i] = string(frame)
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.frames = nil
}

// envelopes decodes every received frame as a JSON object.
func (f *fakeConn) envelopes(t *testing.T) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, frame := range f.received() {
		var m map[string]any
		if err := json.Unmarshal([]byte(frame), &m); err != nil {
			t.Fatalf("conn %s received non-object frame %q: %v", f.id, frame, err)
		}
		out = append(out, m)
	}
	return out
}

func newTestRouter(opts RouterOptions) *Router {
	return NewRouter(NewRegistry(zerolog.Nop()), opts, zerolog.Nop())
}

func defaultRouterOptions() RouterOptions {
	return RouterOptions{IdentityPolicy: configs.PolicyOverwrite, MaxTextBytes: 5000}
}

// join sends INIT for identity on c and fails the test on error.
func join(t *testing.T, rt *Router, c Conn, identity string) {
	t.Helper()

	kind, err := rt.HandleFrame(c, []byte(`{"mtype":"INIT","id":"`+identity+`"}`))
	if err != nil {
		t.Fatalf("INIT %s: %v", identity, err)
	}
	if kind != MTypeInit {
		t.Fatalf("INIT %s classified as %q", identity, kind)
	}
}

func assertNothing(t *testing.T, conns ...*fakeConn) {
	t.Helper()

	for _, c := range conns {
		if got := c.received(); len(got) != 0 {
			t.Errorf("conn %s received %v, want nothing", c.id, got)
		}
	}
}

func assertFrames(t *testing.T, c *fakeConn, want ...string) {
	t.Helper()

	got := c.received()
	if len(got) != len(want) {
		t.Fatalf("conn %s received %d frames %v, want %d %v", c.id, len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("conn %s frame %d = %s, want %s", c.id, i, got[i], want[i])
		}
	}
}
