package notification

import (
	"net/url"
	"strconv"
)

// DefaultPageSize matches the page size the backend UI uses.
const DefaultPageSize = 20

// DefaultMessageType selects user notifications (as opposed to system ones).
const DefaultMessageType = 20

// Filter describes one notification page query.
// Nil pointer fields are omitted from the request.
type Filter struct {
	SkipCount      int     `json:"skipCount"`
	MaxResultCount int     `json:"maxResultCount"`
	Title          *string `json:"title,omitempty"`
	Content        *string `json:"content,omitempty"`
	MessageType    *int    `json:"messageType,omitempty"`
	Level          *Level  `json:"messageLevel,omitempty"`
	Read           *bool   `json:"read,omitempty"`
}

// DefaultFilter returns the first-page query used on a cold start.
func DefaultFilter() Filter {
	mt := DefaultMessageType
	return Filter{
		SkipCount:      0,
		MaxResultCount: DefaultPageSize,
		MessageType:    &mt,
	}
}

// WithSkip returns a copy of f starting at skip.
func (f Filter) WithSkip(skip int) Filter {
	f.SkipCount = skip
	return f
}

// Query encodes f as URL query parameters.
func (f Filter) Query() url.Values {
	q := url.Values{}
	q.Set("skipCount", strconv.Itoa(f.SkipCount))
	if f.MaxResultCount > 0 {
		q.Set("maxResultCount", strconv.Itoa(f.MaxResultCount))
	}
	if f.Title != nil && *f.Title != "" {
		q.Set("title", *f.Title)
	}
	if f.Content != nil && *f.Content != "" {
		q.Set("content", *f.Content)
	}
	if f.MessageType != nil {
		q.Set("messageType", strconv.Itoa(*f.MessageType))
	}
	if f.Level != nil {
		q.Set("messageLevel", strconv.Itoa(int(*f.Level)))
	}
	if f.Read != nil {
		q.Set("read", strconv.FormatBool(*f.Read))
	}
	return q
}
