// Package notification defines the values exchanged with the notification
// backend: notifications, their severity levels, page queries and the send
// payload.
//
// Notifications arrive either as items of a page result or as live pushes
// over the hub connection; both decode into the same Notification type.
//
//	f := notification.DefaultFilter()
//	unread := false
//	f.Read = &unread
//	page, err := client.GetNotifications(ctx, f)
package notification
