// Package session is the credential supplier of the notification client.
//
// A Store holds the bearer token, the selected tenant and the UI language in
// memory and mirrors them to a Persister so a sign-in survives restarts.
// FilePersister writes a YAML file, RedisPersister a redis hash.
//
// Credential validity follows a fail-open rule: an explicit expire_time wins,
// otherwise the exp claim of the JWT payload is used, and a token whose expiry
// cannot be read at all is considered valid.
//
//	st := session.NewStore(session.NewFilePersister(path))
//	if err := st.Restore(ctx); err != nil {
//	    return err
//	}
//	sub := st.Watch(ctx)
//	for change := range sub.Receive() {
//	    // react to sign-in, sign-out and token rotation
//	}
//
// PasswordGrant signs a user in against the identity server with
// golang.org/x/oauth2.
package session
