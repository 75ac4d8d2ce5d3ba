package kv

import "context"

// Unavailable is the Store used when no persistent backing exists.
// Every call fails with ErrUnavailable.
type Unavailable struct{}

func (Unavailable) Get(context.Context, string) (string, error) { return "", ErrUnavailable }

func (Unavailable) Set(context.Context, string, string) error { return ErrUnavailable }

func (Unavailable) Close() error { return nil }
