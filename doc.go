// Package notifysync is a real-time notification client for an ABP-style
// backend.
//
// A Client keeps a local, observable list of the signed-in user's
// notifications in sync with the server. New notifications arrive over a
// SignalR push channel; when the channel cannot be established the client
// falls back to periodic polling and keeps reconnecting with backoff. Reads,
// mark-as-read and send commands go through a coordinator that applies the
// backend's answers to the store.
//
// The channel follows the session credential: signing in starts it, a new
// token restarts it, and signing out or an expired token stops it and empties
// the store.
//
// Configuration comes from NOTIFY_* environment variables:
//
//	cfg, err := notifysync.LoadConfig()
//	if err != nil {
//	    return err
//	}
//	log := cfg.NewLogger("notifyd")
//
//	client, err := notifysync.New(ctx, cfg, notifysync.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	sub := client.Store.Subscribe(ctx)
//	defer sub.Close()
//	go func() {
//	    for snap := range sub.Receive() {
//	        log.Info("notifications", "unread", snap.Unread(), "total", snap.TotalCount)
//	    }
//	}()
//
//	return client.Run(ctx)
//
// The building blocks live in pkg/: session, api, signalr, connection, store,
// coordinator, tokengate and statusapi. Each can be used on its own.
package notifysync
