package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueueDequeue(t *testing.T) {
	q := New[string]()

	ok := q.Enqueue("job-1")
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, "job-1", got)
}

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()

	for i := 1; i <= 3; i++ {
		q.Enqueue(i)
	}

	for want := 1; want <= 3; want++ {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestQueue_TryDequeue_Empty(t *testing.T) {
	q := New[int]()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestQueue_Dequeue_BlocksUntilAvailable(t *testing.T) {
	q := New[string]()

	done := make(chan string)

	go func() {
		item, ok := q.Dequeue()
		if ok {
			done <- item
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue("blocking")

	select {
	case item := <-done:
		assert.Equal(t, "blocking", item)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not unblock")
	}
}

func TestQueue_Close_UnblocksDequeue(t *testing.T) {
	q := New[int]()

	done := make(chan bool)

	go func() {
		_, ok := q.Dequeue()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok, "dequeue after close should return false")
	case <-time.After(time.Second):
		t.Fatal("dequeue did not unblock after close")
	}
}

func TestQueue_Close_KeepsQueuedItems(t *testing.T) {
	q := New[int]()
	q.Enqueue(7)
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(8), "enqueue after close should return false")

	got, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 7, got)

	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestQueue_Len(t *testing.T) {
	q := New[int]()

	assert.Equal(t, 0, q.Len())
	q.Enqueue(1)
	q.Enqueue(2)
	assert.Equal(t, 2, q.Len())
	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
}

func TestQueue_ManyProducers(t *testing.T) {
	q := New[int]()

	const producers = 10
	const itemsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				q.Enqueue(id*1000 + i)
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for {
		item, ok := q.TryDequeue()
		if !ok {
			break
		}
		seen[item] = true
	}
	assert.Len(t, seen, producers*itemsPerProducer)
}
