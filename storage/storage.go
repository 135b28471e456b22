// Package storage loads the data artifacts the agent ships with: the grocery
// catalog and the search intent tables. Artifacts come from the local disk
// during development and from S3 when running in Lambda.
package storage

import (
	"context"
	"errors"
	"log/slog"
)

// State is a loadable blob of artifact data.
type State interface {
	Load(ctx context.Context) ([]byte, error)
}

// ErrNotFound is returned by TestState when constructed without data.
var ErrNotFound = errors.New("not found")

// TestState is a simple in-memory implementation for testing
type TestState struct {
	data []byte
	err  error
}

func NewTestState(data []byte) *TestState {
	return &TestState{data: data}
}

func NewTestStateWithError() *TestState {
	return &TestState{err: ErrNotFound}
}

func (t *TestState) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}

// Bytes adapts an embedded artifact to State.
type Bytes []byte

func (b Bytes) Load(ctx context.Context) ([]byte, error) {
	return b, nil
}

// Fallback tries primary and falls back to secondary when primary fails or is
// nil.
type Fallback struct {
	// Name identifies the artifact in logs.
	Name      string
	Primary   State
	Secondary State
}

func (f Fallback) Load(ctx context.Context) ([]byte, error) {
	if f.Primary != nil {
		data, err := f.Primary.Load(ctx)
		if err == nil {
			return data, nil
		}
		if f.Secondary == nil {
			return nil, err
		}
		slog.Warn("STORAGE: Primary source failed, using fallback", "artifact", f.Name, "error", err)
	}
	if f.Secondary == nil {
		return nil, ErrNotFound
	}
	return f.Secondary.Load(ctx)
}
