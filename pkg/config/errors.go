package config

import "errors"

var (
	ErrNilPointer = errors.New("config: nil destination")
	ErrParse      = errors.New("config: parse environment")
	ErrEnvFile    = errors.New("config: load env file")
)
