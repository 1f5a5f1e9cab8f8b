package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrymomot/notifysync/pkg/notification"
)

const notificationPath = "api/app/notification/"

// GetPage fetches one page of notifications.
func (c *Client) GetPage(ctx context.Context, f notification.Filter) (notification.PagedResult, error) {
	r := request{
		method: http.MethodGet,
		base:   c.base,
		path:   notificationPath + "notification-page",
		query:  f.Query(),
	}

	var out notification.PagedResult
	if err := c.do(ctx, r, &out); err != nil {
		return notification.PagedResult{}, err
	}
	return out, nil
}

// MarkRead flags a notification as read on the backend.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	r, err := c.jsonRequest(http.MethodPost, notificationPath+"read", map[string]string{"id": id})
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// Send delivers a notification to one recipient through the endpoint of its level.
func (c *Client) Send(ctx context.Context, in notification.CreateInput) error {
	segment, err := levelSegment(in.Level)
	if err != nil {
		return err
	}
	r, err := c.jsonRequest(http.MethodPost, notificationPath+"send-common-"+segment+"-message", in)
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// Broadcast delivers a notification to every user through the endpoint of its level.
// Recipient fields of in are ignored.
func (c *Client) Broadcast(ctx context.Context, in notification.CreateInput) error {
	segment, err := levelSegment(in.Level)
	if err != nil {
		return err
	}
	in.ReceiveUserID, in.ReceiveUserName = "", ""
	r, err := c.jsonRequest(http.MethodPost, notificationPath+"send-broad-cast-"+segment+"-message", in)
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

// Users lists recipient candidates.
func (c *Client) Users(ctx context.Context, skip, limit int) (notification.UserList, error) {
	q := url.Values{}
	q.Set("skipCount", strconv.Itoa(max(skip, 0)))
	if limit > 0 {
		q.Set("maxResultCount", strconv.Itoa(limit))
	}
	r := request{method: http.MethodGet, base: c.base, path: "api/identity/users", query: q}

	var out notification.UserList
	if err := c.do(ctx, r, &out); err != nil {
		return notification.UserList{}, err
	}
	return out, nil
}

func levelSegment(l notification.Level) (string, error) {
	switch l {
	case notification.LevelWarning:
		return "warning", nil
	case notification.LevelInformation:
		return "information", nil
	case notification.LevelError:
		return "error", nil
	default:
		return "", ErrUnknownLevel
	}
}
