// Package state implements state capabilties for integrations
package state

import (
	"context"
)

// Persistence is an interface for state management
type Persistence interface {
	Exists(context.Context, string) (bool, error)
	Add(context.Context, string, interface{}) error
	Rm(context.Context, string) error
	Get(context.Context, string, interface{}) error
}
