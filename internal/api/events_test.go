package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHub_StreamsBroadcasts(t *testing.T) {
	hub := NewEventHub()
	defer hub.Close()
	server := httptest.NewServer(hub)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	hub.Broadcast(Event{Type: EventReload, Source: "frota.xlsx", Rows: 42})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: reload\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: {"))
	assert.Contains(t, line, `"rows":42`)
}

func TestEventHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewEventHub()
	client := make(chan Event, 1)
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	hub.Close()

	select {
	case _, open := <-client:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("client channel not closed")
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestEventHub_ClosedHubRejectsClients(t *testing.T) {
	hub := NewEventHub()
	hub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/events", nil))
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("closed hub kept the stream open")
	}
}
