package chat

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestHub() *Hub {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHub(logger, NewTable(100))
}

// drain empties a connection's outbound queue and decodes each frame into a
// generic map keyed by the "type" field
func drain(t *testing.T, c *Conn) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case b := <-c.out:
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatalf("bad frame %q: %v", b, err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func frameTypes(frames []map[string]any) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		typ, _ := f["type"].(string)
		out = append(out, typ)
	}
	return out
}

func join(h *Hub, c *Conn, task, auid, name string) {
	h.Join(c, task, Identity{AUID: auid, Name: name})
}

func TestJoinValidation(t *testing.T) {
	h := newTestHub()
	c := NewConn(nil)

	h.Join(c, "", Identity{})

	frames := drain(t, c)
	if len(frames) != 1 || frames[0]["type"] != evError {
		t.Fatalf("expected exactly one error frame, got %v", frameTypes(frames))
	}
	msg := frames[0]["message"].(string)
	for _, field := range []string{"taskId", "auid", "name"} {
		if !strings.Contains(msg, field) {
			t.Fatalf("error should name missing field %s, got %q", field, msg)
		}
	}
}

func TestJoinBroadcastsPresenceAndReplaysHistory(t *testing.T) {
	h := newTestHub()
	c1, c2 := NewConn(nil), NewConn(nil)

	join(h, c1, "t1", "a1", "ann")
	got := frameTypes(drain(t, c1))
	if len(got) != 2 || got[0] != evUserJoined || got[1] != evHistory {
		t.Fatalf("joiner should see own user-joined then history, got %v", got)
	}

	join(h, c2, "t1", "a2", "bob")

	// Existing member sees the new joiner
	if got := frameTypes(drain(t, c1)); len(got) != 1 || got[0] != evUserJoined {
		t.Fatalf("member should see user-joined, got %v", got)
	}

	// Joiner gets the presence broadcast plus the snapshot, nothing else
	frames := drain(t, c2)
	if got := frameTypes(frames); len(got) != 2 || got[0] != evUserJoined || got[1] != evHistory {
		t.Fatalf("unexpected join frames %v", got)
	}
	if msgs := frames[1]["messages"].([]any); len(msgs) != 0 {
		t.Fatalf("fresh room should replay empty history, got %d entries", len(msgs))
	}
}

func TestSendMessageFanout(t *testing.T) {
	h := newTestHub()
	c1, c2 := NewConn(nil), NewConn(nil)
	join(h, c1, "t1", "a1", "ann")
	join(h, c2, "t1", "a2", "bob")
	drain(t, c1)
	drain(t, c2)

	h.SendMessage(c1, "t1", Identity{AUID: "a1", Name: "ann"}, "hello", nil)

	for _, c := range []*Conn{c1, c2} {
		frames := drain(t, c)
		if len(frames) != 1 || frames[0]["type"] != evChat {
			t.Fatalf("every member incl. sender gets the chat frame, got %v", frameTypes(frames))
		}
		m := frames[0]["message"].(map[string]any)
		if m["message"] != "hello" || m["id"] == "" || m["ts"] == nil {
			t.Fatalf("incomplete message payload: %v", m)
		}
	}

	if got := h.table.History("t1"); len(got) != 1 || got[0].Body != "hello" {
		t.Fatalf("message should be appended to history, got %+v", got)
	}
}

func TestSendMessageMissingSender(t *testing.T) {
	h := newTestHub()
	c1, c2 := NewConn(nil), NewConn(nil)
	join(h, c1, "t1", "a1", "ann")
	join(h, c2, "t1", "a2", "bob")
	drain(t, c1)
	drain(t, c2)

	h.SendMessage(c1, "t1", Identity{Name: "ann"}, "hello", nil)

	frames := drain(t, c1)
	if len(frames) != 1 || frames[0]["type"] != evError {
		t.Fatalf("caller should get exactly one error, got %v", frameTypes(frames))
	}
	if frames := drain(t, c2); len(frames) != 0 {
		t.Fatalf("room must see zero broadcasts, got %v", frameTypes(frames))
	}
	if got := h.table.History("t1"); len(got) != 0 {
		t.Fatalf("rejected message must not reach history, got %d", len(got))
	}
}

func TestLateJoinerReceivesHistoryThenLive(t *testing.T) {
	h := newTestHub()
	sender := NewConn(nil)
	join(h, sender, "t1", "a1", "ann")
	for _, body := range []string{"one", "two", "three"} {
		h.SendMessage(sender, "t1", Identity{AUID: "a1", Name: "ann"}, body, nil)
	}
	drain(t, sender)

	late := NewConn(nil)
	join(h, late, "t1", "a2", "bob")
	frames := drain(t, late)
	if got := frameTypes(frames); len(got) != 2 || got[1] != evHistory {
		t.Fatalf("unexpected join frames %v", got)
	}
	msgs := frames[1]["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 replayed messages, got %d", len(msgs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if got := msgs[i].(map[string]any)["message"]; got != want {
			t.Fatalf("replay out of order at %d: got %v want %s", i, got, want)
		}
	}

	h.SendMessage(sender, "t1", Identity{AUID: "a1", Name: "ann"}, "four", nil)
	if got := frameTypes(drain(t, late)); len(got) != 1 || got[0] != evChat {
		t.Fatalf("late joiner should get subsequent sends live, got %v", got)
	}
}

func TestDisconnectBroadcastsPerRoom(t *testing.T) {
	h := newTestHub()
	c := NewConn(nil)
	inA, inB := NewConn(nil), NewConn(nil)
	join(h, c, "a", "a1", "ann")
	join(h, c, "b", "a1", "ann")
	join(h, inA, "a", "a2", "bob")
	join(h, inB, "b", "a3", "cid")
	drain(t, c)
	drain(t, inA)
	drain(t, inB)

	h.Disconnect(c)

	for _, member := range []*Conn{inA, inB} {
		frames := drain(t, member)
		if len(frames) != 1 || frames[0]["type"] != evUserLeft {
			t.Fatalf("expected exactly one user-left, got %v", frameTypes(frames))
		}
		if user := frames[0]["user"].(map[string]any); user["auid"] != "a1" {
			t.Fatalf("user-left should carry the leaver, got %v", user)
		}
	}

	// Nothing further reaches the disconnected connection
	if frames := drain(t, c); len(frames) != 0 {
		t.Fatalf("disconnected conn received %v", frameTypes(frames))
	}
	h.SendMessage(inA, "a", Identity{AUID: "a2", Name: "bob"}, "after", nil)
	if frames := drain(t, c); len(frames) != 0 {
		t.Fatalf("disconnected conn still receiving: %v", frameTypes(frames))
	}
}

func TestLeaveSingleRoom(t *testing.T) {
	h := newTestHub()
	c, other := NewConn(nil), NewConn(nil)
	join(h, c, "a", "a1", "ann")
	join(h, c, "b", "a1", "ann")
	join(h, other, "a", "a2", "bob")
	drain(t, c)
	drain(t, other)

	h.Leave(c, "a")

	if got := frameTypes(drain(t, other)); len(got) != 1 || got[0] != evUserLeft {
		t.Fatalf("remaining member should see user-left, got %v", got)
	}
	// Membership in b is untouched
	h.SendMessage(c, "b", Identity{AUID: "a1", Name: "ann"}, "still here", nil)
	if got := frameTypes(drain(t, c)); len(got) != 1 || got[0] != evChat {
		t.Fatalf("expected chat in remaining room, got %v", got)
	}
}

func TestIdentityBoundAtFirstJoin(t *testing.T) {
	h := newTestHub()
	c := NewConn(nil)
	join(h, c, "a", "a1", "ann")
	drain(t, c)

	// A different identity on a later join is ignored for this connection
	join(h, c, "b", "zz", "imposter")
	frames := drain(t, c)
	if len(frames) != 2 {
		t.Fatalf("expected user-joined + history, got %v", frameTypes(frames))
	}
	if user := frames[0]["user"].(map[string]any); user["auid"] != "a1" || user["name"] != "ann" {
		t.Fatalf("second join must keep the first identity, got %v", user)
	}
}

func TestDispatchMalformedFrame(t *testing.T) {
	h := newTestHub()
	c := NewConn(nil)

	h.dispatch(c, []byte("{not json"))
	h.dispatch(c, []byte(`{"type":"dance"}`))

	frames := drain(t, c)
	if got := frameTypes(frames); len(got) != 2 || got[0] != evError || got[1] != evError {
		t.Fatalf("expected two point-to-point errors, got %v", got)
	}
}

func TestPlaceholderIdentity(t *testing.T) {
	c := NewConn(nil)
	id := c.Identity()
	if !strings.HasPrefix(id.AUID, "anon-") || id.Name != "anonymous" {
		t.Fatalf("expected placeholder identity, got %+v", id)
	}
}
