package chat

// Event types carried in the "type" field of every frame.
const (
	evJoin    = "join"
	evMessage = "message"
	evLeave   = "leave"

	evHistory    = "history"
	evChat       = "chat"
	evUserJoined = "user-joined"
	evUserLeft   = "user-left"
	evError      = "error"
)

// Identity is the externally asserted participant identity. It is never
// authenticated; the first successful join binds it to the connection for
// the connection's lifetime.
type Identity struct {
	AUID string `json:"auid"`
	Name string `json:"name"`
}

// Attachment references a validated, persisted upload. Messages embed it
// as-is and never mutate it.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Message is immutable once built. TS is unix milliseconds.
type Message struct {
	ID     string       `json:"id"`
	TaskID string       `json:"taskId"`
	Sender Identity     `json:"sender"`
	Body   string       `json:"message"`
	Files  []Attachment `json:"files,omitempty"`
	TS     int64        `json:"ts"`
}

// envelope is the client->server frame; fields beyond Type are per-event.
type envelope struct {
	Type   string       `json:"type"`
	TaskID string       `json:"taskId,omitempty"`
	User   *Identity    `json:"user,omitempty"`
	Sender *Identity    `json:"sender,omitempty"`
	Body   string       `json:"message,omitempty"`
	Files  []Attachment `json:"files,omitempty"`
}

type historyEvent struct {
	Type     string    `json:"type"`
	TaskID   string    `json:"taskId"`
	Messages []Message `json:"messages"`
}

type chatEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

type presenceEvent struct {
	Type   string   `json:"type"`
	TaskID string   `json:"taskId"`
	User   Identity `json:"user"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
