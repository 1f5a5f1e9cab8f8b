package notification

import "strings"

// Level represents the notification severity as the backend encodes it.
type Level int

const (
	LevelWarning     Level = 10
	LevelInformation Level = 20
	LevelError       Level = 30
)

// String returns the backend's level name.
func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "Warning"
	case LevelInformation:
		return "Information"
	case LevelError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Valid reports whether l is one of the three known levels.
func (l Level) Valid() bool {
	return l == LevelWarning || l == LevelInformation || l == LevelError
}

// ParseLevel maps a level name (case-insensitive) to a Level.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "warning", "warn":
		return LevelWarning, true
	case "information", "info":
		return LevelInformation, true
	case "error":
		return LevelError, true
	default:
		return 0, false
	}
}

// Notification is a single message addressed to the current user.
// Values are treated as immutable once they enter a store.
type Notification struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Level           Level      `json:"messageLevel"`
	LevelName       string     `json:"messageLevelName,omitempty"`
	SenderUserName  string     `json:"senderUserName"`
	ReceiveUserName string     `json:"receiveUserName"`
	Read            bool       `json:"read"`
	ReadTime        *Timestamp `json:"readTime,omitempty"`
	CreationTime    Timestamp  `json:"creationTime"`
}

// MarkedRead returns a copy of n flagged as read at when.
// The receiver is left untouched so snapshots holding it stay stable.
func (n Notification) MarkedRead(when Timestamp) Notification {
	n.Read = true
	n.ReadTime = &when
	return n
}

// CreateInput is the payload of the send endpoints.
type CreateInput struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	Level           Level  `json:"messageLevel"`
	ReceiveUserID   string `json:"receiveUserId,omitempty"`
	ReceiveUserName string `json:"receiveUserName,omitempty"`
}

// PagedResult is one page of notifications plus the backend's total.
type PagedResult struct {
	Items      []Notification `json:"items"`
	TotalCount int            `json:"totalCount"`
}

// User is a recipient candidate returned by the identity endpoint.
type User struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// UserList is one page of users.
type UserList struct {
	Items      []User `json:"items"`
	TotalCount int    `json:"totalCount"`
}
