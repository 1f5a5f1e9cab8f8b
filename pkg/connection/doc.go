// Package connection manages the lifecycle of the notification push channel.
//
// A Manager moves through Disconnected, Connecting, Connected, Reconnecting
// and Polling:
//
//	Disconnected --Start--> Connecting --ok--> Connected --drop--> Reconnecting
//	                            |                                    |   ^
//	                            +--fail------------------------------+   | retry after backoff
//	                            |                                    +---+
//	                            +--no transport--> Polling (fetch every 30s)
//	any state --Stop--> Disconnected
//
// Reconnect waits follow a Schedule, by default 0, 2s, 10s, 30s with the last
// entry repeated, and the attempt counter resets on every successful connect.
// When the first connect of a Start cycle fails with ErrTransportUnavailable
// the manager gives up on the live channel and polls instead until Stop.
// Observers see Polling as connected; Status.Polling tells the two apart.
//
// The channel itself is supplied by a Dialer, see package signalr.
package connection
