package service

import "context"

// CardCache holds card detail projections keyed by identifier.
// It is advisory: failures are logged and the database answers instead.
type CardCache interface {
	Get(ctx context.Context, identifier string, dst interface{}) (bool, error)
	Set(ctx context.Context, identifier string, value interface{}) error
	Delete(ctx context.Context, identifier string) error
}

// NoopCardCache is used when no cache backend is configured.
type NoopCardCache struct{}

func (NoopCardCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (NoopCardCache) Set(context.Context, string, interface{}) error         { return nil }
func (NoopCardCache) Delete(context.Context, string) error                   { return nil }
