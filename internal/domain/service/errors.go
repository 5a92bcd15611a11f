package service

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateName = errors.New("duplicate service name")
	ErrNotFound      = errors.New("service not found")
	ErrInvalidConfig = errors.New("invalid service config")
	ErrPersist       = errors.New("persist service configs")
)

// ConfigError reports one rejected service definition. Index is the position of the record
// in the store, or -1 when the config did not come from a store.
type ConfigError struct {
	Index  int
	Name   string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	var where string
	switch {
	case e.Name != "":
		where = fmt.Sprintf("service %q", e.Name)
	case e.Index >= 0:
		where = fmt.Sprintf("record #%d", e.Index)
	default:
		where = "service"
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", where, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", where, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }
