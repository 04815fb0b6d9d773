package bot

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatQueues_KeepsOrderPerChat(t *testing.T) {
	q := newChatQueues(4)

	var mu sync.Mutex
	got := map[int64][]int{}
	for i := 0; i < 200; i++ {
		chatID := int64(i % 3)
		n := i
		require.True(t, q.Do(chatID, func() {
			mu.Lock()
			got[chatID] = append(got[chatID], n)
			mu.Unlock()
		}))
	}
	q.Close()

	for chatID, seq := range got {
		for i := 1; i < len(seq); i++ {
			assert.Less(t, seq[i-1], seq[i], "chat %d ran out of order", chatID)
		}
	}
	assert.Len(t, got[0], 67)
}

func TestChatQueues_ChatsRunConcurrently(t *testing.T) {
	q := newChatQueues(1)
	defer q.Close()

	release := make(chan struct{})
	q.Do(1, func() { <-release })

	done := make(chan struct{})
	q.Do(2, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a busy chat blocked another chat")
	}
	close(release)
}

func TestChatQueues_CloseWaitsForQueuedJobs(t *testing.T) {
	q := newChatQueues(8)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		q.Do(7, func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		})
	}
	q.Close()

	assert.Equal(t, int32(5), ran.Load())
	assert.False(t, q.Do(7, func() {}))
}
