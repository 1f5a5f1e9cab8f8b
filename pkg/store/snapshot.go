package store

import "github.com/dmitrymomot/notifysync/pkg/notification"

// Kind identifies a command category with its own in-flight flag and error.
type Kind int

const (
	KindFetch Kind = iota
	KindSend
	KindMarkRead
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindSend:
		return "send"
	case KindMarkRead:
		return "mark_read"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable copy of the store state. Items are most recent
// first. Callers must treat the pointer fields of Filter and items as read-only.
type Snapshot struct {
	Items       []notification.Notification `json:"items"`
	TotalCount  int                         `json:"totalCount"`
	UnreadCount int                         `json:"unreadCount"`
	Filter      notification.Filter         `json:"filter"`

	Fetching    bool `json:"fetching"`
	Sending     bool `json:"sending"`
	MarkingRead bool `json:"markingRead"`

	FetchError    string `json:"fetchError,omitempty"`
	SendError     string `json:"sendError,omitempty"`
	MarkReadError string `json:"markReadError,omitempty"`
}

// HasMore reports whether the backend holds items beyond the loaded ones.
func (s Snapshot) HasMore() bool {
	return len(s.Items) < s.TotalCount
}

// InFlight reports the in-flight flag of kind.
func (s Snapshot) InFlight(kind Kind) bool {
	switch kind {
	case KindFetch:
		return s.Fetching
	case KindSend:
		return s.Sending
	case KindMarkRead:
		return s.MarkingRead
	default:
		return false
	}
}

// Err returns the latest error message recorded for kind.
func (s Snapshot) Err(kind Kind) string {
	switch kind {
	case KindFetch:
		return s.FetchError
	case KindSend:
		return s.SendError
	case KindMarkRead:
		return s.MarkReadError
	default:
		return ""
	}
}

// Unread counts unread items by full scan.
func (s Snapshot) Unread() int {
	n := 0
	for _, item := range s.Items {
		if !item.Read {
			n++
		}
	}
	return n
}

func (s *Snapshot) setInFlight(kind Kind, v bool) {
	switch kind {
	case KindFetch:
		s.Fetching = v
	case KindSend:
		s.Sending = v
	case KindMarkRead:
		s.MarkingRead = v
	}
}

func (s *Snapshot) setErr(kind Kind, msg string) {
	switch kind {
	case KindFetch:
		s.FetchError = msg
	case KindSend:
		s.SendError = msg
	case KindMarkRead:
		s.MarkReadError = msg
	}
}
