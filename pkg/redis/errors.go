package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redis: empty connection URL")
	ErrInvalidURL         = errors.New("redis: invalid connection URL")
	ErrNotReady           = errors.New("redis: not ready before timeout")
	ErrHealthcheckFailed  = errors.New("redis: healthcheck failed")
)
