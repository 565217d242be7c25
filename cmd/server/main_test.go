package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationRun_StopsOnCancel(t *testing.T) {
	app := &Application{handler: http.NotFoundHandler()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx, "127.0.0.1:0", time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestApplicationRun_ListenError(t *testing.T) {
	app := &Application{handler: http.NotFoundHandler()}

	err := app.Run(context.Background(), "invalid-address", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server failed")
}
