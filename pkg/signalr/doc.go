// Package signalr implements the notification push channel: the SignalR
// JSON hub protocol over a WebSocket.
//
// Only the WebSocket transport is used and the negotiate request is skipped.
// The access token travels both as the access_token query value and as a
// bearer Authorization header. After the handshake the client pings every
// 15 seconds and treats 30 seconds of silence from the server as a dead
// connection. Every ReceiveNotification invocation is decoded into a
// notification.Notification and delivered on the channel's Messages.
//
//	dialer, err := signalr.NewDialer("https://api.example.com")
//	manager := connection.New(dialer, connection.WithIncoming(func(n notification.Notification) {
//	    st.ApplyIncoming(n)
//	}))
package signalr
