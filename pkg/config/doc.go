// Package config reads configuration structs from the environment using
// caarlos0/env struct tags, with .env files applied through godotenv.
//
// Parse fills a struct on every call; Load caches the result per type and
// prefix for the life of the process. Both accept WithPrefix, so one set of
// tags can be read under NOTIFY_, and WithEnvFiles, which applies .env files
// before parsing:
//
//	var cfg notifysync.Config
//	err := config.Parse(&cfg,
//	    config.WithPrefix("NOTIFY_"),
//	    config.WithEnvFiles(".env.local"),
//	)
//
// Errors wrap ErrParse, ErrEnvFile or ErrNilPointer.
package config
