package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTrackOperation_ReturnsError(t *testing.T) {
	want := errors.New("boom")
	called := false
	err := TrackOperation(context.Background(), "test", time.Hour, func(context.Context) error {
		called = true
		return want
	})
	if !called {
		t.Fatal("fn not called")
	}
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestTrackOperation_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	err := TrackOperation(ctx, "test", 0, func(got context.Context) error {
		if got.Value(key{}) != "v" {
			t.Error("context not passed through")
		}
		return nil
	})
	if err != nil {
		t.Errorf("err = %v", err)
	}
}
