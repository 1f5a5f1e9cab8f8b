// Package tokengate keeps the push channel in step with the stored
// credential.
//
// A credential is usable when session.Credential.Valid reports true: an
// explicit expire_time wins, otherwise the token's embedded exp claim is
// used, and a token whose expiry cannot be read counts as valid.
//
//	gate := tokengate.New(manager, st)
//	watch := sessions.Watch(ctx)
//	go gate.Run(ctx, watch.Receive())
package tokengate
