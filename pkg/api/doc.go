// Package api is the HTTP client for the notification backend.
//
// Every request carries the bearer token, the Accept-Language and the
// __tenant header taken from a SessionContext. A 401 response with the
// _abperrorformat marker runs the unauthorized hook and is reported as an
// error wrapping ErrAuthExpired. Every other failure is an *Error with a
// displayable title and message.
//
//	client, err := api.New(baseURL, sessions, api.WithUnauthorized(func(ctx context.Context) {
//	    _ = sessions.ClearCredential(ctx)
//	}))
//	page, err := client.GetPage(ctx, notification.DefaultFilter())
package api
