package coordinator

import (
	"sync"

	"github.com/dmitrymomot/notifysync/pkg/store"
)

// fifo runs mutating jobs of one kind strictly in submission order, one at a
// time. The kind's in-flight flag is set while any job is queued or running.
type fifo struct {
	kind store.Kind
	st   *store.Store
	wg   *sync.WaitGroup
	mu   sync.Mutex
	jobs []func()
	busy bool
}

func newFIFO(kind store.Kind, st *store.Store, wg *sync.WaitGroup) *fifo {
	return &fifo{kind: kind, st: st, wg: wg}
}

// push queues job. The caller already holds a wg count for job, so the
// drain goroutine is never added to an idle group.
func (q *fifo) push(job func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.jobs = append(q.jobs, job)
	if q.busy {
		return
	}
	q.busy = true
	q.st.SetInFlight(q.kind, true)
	q.wg.Add(1)
	go q.drain()
}

func (q *fifo) drain() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.busy = false
			q.st.SetInFlight(q.kind, false)
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		job()
	}
}
