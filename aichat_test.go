package aichat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MissChina/ai-chat/bus"
	"github.com/MissChina/ai-chat/core"
	"github.com/MissChina/ai-chat/internal/testutil"
	"github.com/MissChina/ai-chat/responder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatEndToEnd(t *testing.T) {
	chat := New()
	chat.RegisterResponder(responder.NewMockResponder("mock-model", "Mock"))

	room, err := chat.CreateRoom(testutil.NewRoomBuilder("Panel").
		Owner("u1").
		Member("m1", "mock-model", 1).
		Member("m2", "mock-model", 2).
		Build())
	require.NoError(t, err)

	ctx := context.Background()
	sess, err := chat.StartSession(ctx, room.ID, "u1", "What is Go?")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		kinds []bus.EventKind
	)
	defer chat.Subscribe(sess.ID, func(ev bus.Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, ev.Kind)
	})()

	waitFor := func(state core.SessionState) *core.Session {
		var snap *core.Session
		require.Eventually(t, func() bool {
			s, err := chat.Session(sess.ID)
			if err != nil {
				return false
			}
			if s.State == state {
				snap = s
				return true
			}
			return false
		}, 2*time.Second, 2*time.Millisecond)
		return snap
	}

	waitFor(core.StateAIFinished)

	_, err = chat.Next(ctx, sess.ID)
	require.NoError(t, err)
	final := waitFor(core.StateCompleted)

	assert.Len(t, final.AssistantMessages(), 2)
	assert.Equal(t, len(final.Speakers), final.CurrentIndex)

	supplemented, err := chat.Supplement(ctx, sess.ID, "m2", "expand on that")
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, supplemented.State)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, kinds)
}
