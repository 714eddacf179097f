package starlark

import (
	"log/slog"
	"sync"

	"go.starlark.net/starlark"
)

// DefaultPoolSize is the number of idle threads a ThreadPool keeps.
const DefaultPoolSize = 10

// ThreadPool recycles Starlark threads across evaluations.
// Evaluations run concurrently; each borrows its own thread.
type ThreadPool struct {
	mu      sync.Mutex
	threads []*starlark.Thread
	maxSize int
	logger  *slog.Logger
}

// NewThreadPool creates a pool keeping at most maxSize idle threads.
// print() output of expressions goes to logger at debug level.
func NewThreadPool(maxSize int, logger *slog.Logger) *ThreadPool {
	if maxSize <= 0 {
		maxSize = DefaultPoolSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ThreadPool{
		threads: make([]*starlark.Thread, 0, maxSize),
		maxSize: maxSize,
		logger:  logger,
	}
}

// Get retrieves a thread from the pool or creates a new one.
// The thread name is used for error reporting.
func (p *ThreadPool) Get(name string) *starlark.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) > 0 {
		thread := p.threads[len(p.threads)-1]
		p.threads = p.threads[:len(p.threads)-1]
		thread.Name = name
		return thread
	}

	logger := p.logger
	return &starlark.Thread{
		Name: name,
		Print: func(thread *starlark.Thread, msg string) {
			logger.Debug("starlark print", "thread", thread.Name, "msg", msg)
		},
	}
}

// Put returns a thread to the pool for reuse.
// If the pool is full, the thread is discarded.
func (p *ThreadPool) Put(thread *starlark.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) < p.maxSize {
		thread.Name = ""
		thread.Uncancel()
		p.threads = append(p.threads, thread)
	}
}

// Size returns the current number of idle threads in the pool.
func (p *ThreadPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}
