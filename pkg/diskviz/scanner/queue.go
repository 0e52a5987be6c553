package scanner

import "sync"

// job is a pending directory scan.
type job struct {
	// path is the directory to open.
	path string

	// node is the tree node the directory's entries are attached to.
	node nodeIndex

	// rel is the slash-separated path relative to the scan root, used for
	// exclude matching.
	rel string

	// resolved is the symlink-free path of the directory. Only set when
	// following symlinks.
	resolved string
}

// workQueue is a FIFO of directory jobs with termination detection.
// Workers both consume and produce jobs, so an empty queue does not mean the
// scan is finished. The queue closes itself only when the last outstanding
// job completes.
type workQueue struct {
	mu          sync.Mutex
	cond        *sync.Cond
	jobs        []job
	outstanding int
	closed      bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a job and counts it as outstanding. Jobs enqueued after the
// queue has closed are dropped and Enqueue reports false.
func (q *workQueue) Enqueue(j job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.jobs = append(q.jobs, j)
	q.outstanding++
	q.cond.Signal()
	return true
}

// Next blocks until a job is available or the queue closes. The second
// return value is false once the queue is closed.
func (q *workQueue) Next() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return job{}, false
	}

	j := q.jobs[0]
	q.jobs[0] = job{}
	q.jobs = q.jobs[1:]
	return j, true
}

// CompleteJob marks one job finished. When no jobs remain outstanding the
// queue closes and every waiting worker is released.
func (q *workQueue) CompleteJob() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.outstanding == 0 {
		panic("scanner: CompleteJob without an outstanding job")
	}
	q.outstanding--
	if q.outstanding == 0 {
		q.closeLocked()
	}
}

// Close closes the queue regardless of outstanding work and drops pending
// jobs. It is safe to call more than once.
func (q *workQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closeLocked()
}

func (q *workQueue) closeLocked() {
	if q.closed {
		return
	}
	q.closed = true
	q.jobs = nil
	q.cond.Broadcast()
}

// Outstanding returns the number of enqueued jobs not yet completed.
func (q *workQueue) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding
}

// Closed reports whether the queue has closed.
func (q *workQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
