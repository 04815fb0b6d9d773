package bot

import "sync"

// chatQueues runs jobs one at a time per chat, in the order they were
// submitted. Different chats run concurrently.
type chatQueues struct {
	mu     sync.Mutex
	queues map[int64]chan func()
	wg     sync.WaitGroup
	size   int
	closed bool
}

func newChatQueues(size int) *chatQueues {
	return &chatQueues{queues: make(map[int64]chan func()), size: size}
}

// Do queues job for chatID. It blocks while that chat's queue is full and
// reports false once the queues are closed.
func (q *chatQueues) Do(chatID int64, job func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	ch, ok := q.queues[chatID]
	if !ok {
		ch = make(chan func(), q.size)
		q.queues[chatID] = ch
		q.wg.Add(1)
		go q.work(ch)
	}
	q.mu.Unlock()

	ch <- job
	return true
}

func (q *chatQueues) work(ch chan func()) {
	defer q.wg.Done()
	for job := range ch {
		job()
	}
}

// Close stops accepting jobs and waits until every queued job has run.
// Do must not be called concurrently with Close.
func (q *chatQueues) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		for _, ch := range q.queues {
			close(ch)
		}
	}
	q.mu.Unlock()
	q.wg.Wait()
}
