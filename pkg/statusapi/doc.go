// Package statusapi serves the local status surface a downstream UI builds on.
//
// GET /state returns the connection status and the notification snapshot as
// JSON. GET /stream keeps a datastar event stream open and patches the
// "connection" and "notifications" signals as they change. The POST
// endpoints issue coordinator commands and answer with a CommandResult once
// the command has resolved.
//
//	h := statusapi.NewHandler(st, manager, coord)
//	srv := statusapi.NewServer(statusapi.Config{Addr: "127.0.0.1:8088"})
//	err := srv.Run(ctx, h)
package statusapi
