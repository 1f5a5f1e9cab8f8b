package session

import "errors"

var (
	// ErrNoCredential indicates no bearer token is stored
	ErrNoCredential = errors.New("session.no_credential")

	// ErrInvalidTenantID indicates a tenant identifier that is not a UUID
	ErrInvalidTenantID = errors.New("session.invalid_tenant_id")

	// ErrPersist indicates the persister failed to save or clear the session
	ErrPersist = errors.New("session.persist_failed")

	// ErrRestore indicates the persister failed to load the session
	ErrRestore = errors.New("session.restore_failed")

	// ErrPasswordGrant indicates the identity server rejected the password grant
	ErrPasswordGrant = errors.New("session.password_grant_failed")

	// ErrFailedToParseRedisConnString indicates an unparsable redis URL
	ErrFailedToParseRedisConnString = errors.New("session.redis_invalid_url")

	// ErrRedisNotReady indicates redis did not answer a ping within the retry budget
	ErrRedisNotReady = errors.New("session.redis_not_ready")
)
