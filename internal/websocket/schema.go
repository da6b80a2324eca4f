package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing      Action = "ping"
	ActionFaceEvent Action = "face_event"
	ActionActivity  Action = "activity"
	ActionMedia     Action = "media"
)

// RequestPayload carries every stream action; unused fields stay empty.
type RequestPayload struct {
	Action Action `json:"action"`

	// face_event
	Kind            string `json:"kind,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Count           int    `json:"count,omitempty"`

	// activity
	Text string `json:"text,omitempty"`

	// media
	WebcamActive      *bool `json:"webcam_active,omitempty"`
	ScreenShareActive *bool `json:"screen_share_active,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError Event = "error"
	EventAck   Event = "ack"
	EventPong  Event = "pong"
)

type AckResponse struct {
	Event  Event  `json:"event"`
	Action Action `json:"action"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
