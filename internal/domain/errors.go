package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotOnline            = errors.New("not online")
	ErrCallerBusy           = errors.New("already in a call")
	ErrTargetsOffline       = errors.New("targets offline")
	ErrTargetsBusy          = errors.New("targets busy")
	ErrSessionNotFound      = errors.New("call not found")
	ErrNotAMember           = errors.New("not a member of the call")
	ErrUnauthorizedIdentity = errors.New("unauthorized")
)

// TargetsError is an all-or-nothing precondition failure on a set of users.
// Kind is ErrTargetsOffline or ErrTargetsBusy.
type TargetsError struct {
	Kind  error
	Users []UserID
}

func (e *TargetsError) Error() string {
	ids := make([]string, len(e.Users))
	for i, u := range e.Users {
		ids[i] = string(u)
	}
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(ids, ","))
}

func (e *TargetsError) Unwrap() error { return e.Kind }

func TargetsOffline(users []UserID) error {
	return &TargetsError{Kind: ErrTargetsOffline, Users: users}
}

func TargetsBusy(users []UserID) error {
	return &TargetsError{Kind: ErrTargetsBusy, Users: users}
}
