// ABOUTME: Tests for the session registry and session id selection
// ABOUTME: Covers per-principal isolation, multiple sessions and id fallbacks

package session

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_MarkAndCheck(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.IsInitialized("alice", "s1"))
	assert.False(t, r.HasSession("alice"))

	r.MarkInitialized("alice", "s1")
	r.MarkInitialized("alice", "s2")
	r.MarkInitialized("alice", "s1")

	assert.True(t, r.IsInitialized("alice", "s1"))
	assert.True(t, r.IsInitialized("alice", "s2"))
	assert.True(t, r.HasSession("alice"))
	assert.Equal(t, 2, r.Count("alice"))

	// Sessions do not leak across principals
	assert.False(t, r.IsInitialized("bob", "s1"))
	assert.Equal(t, 0, r.Count("bob"))
	assert.Equal(t, 2, r.Total())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.MarkInitialized("p", string(rune('a'+n)))
				_ = r.IsInitialized("p", "a")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, r.Count("p"))
}

func TestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		reqID  json.RawMessage
		want   string
	}{
		{"header wins", "hdr-1", json.RawMessage(`5`), "hdr-1"},
		{"numeric request id", "", json.RawMessage(`5`), "5"},
		{"string request id", "", json.RawMessage(`"abc"`), "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ID(tt.header, tt.reqID))
		})
	}
}

func TestID_Generated(t *testing.T) {
	a := ID("", nil)
	b := ID("", json.RawMessage(`null`))

	assert.True(t, strings.HasPrefix(a, "session-"))
	assert.True(t, strings.HasPrefix(b, "session-"))
	assert.NotEqual(t, a, b)
}
