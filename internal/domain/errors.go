package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrAlreadyClaimed  = errors.New("record already claimed")
	ErrInvalidBet      = errors.New("invalid bet parameters")
	ErrLockHeld        = errors.New("lock already held")
	ErrSessionExpired  = errors.New("exchange session expired")
	ErrNoBalance       = errors.New("no available balance")
	ErrNoEvents        = errors.New("no eligible events")
)
