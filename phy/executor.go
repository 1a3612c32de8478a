package phy

// executor models one of the two single-threaded io_context event loops
// of spec §4.E (sender and receiver): a strictly serial FIFO of posted
// closures run on a single dedicated goroutine, so everything submitted
// to it happens-before everything submitted after it. Audio callbacks
// never run here; they call straight into the ring/state they own and
// only hand the heavier, order-sensitive work (framing, line-coding,
// message reassembly) off to an executor.
type executor struct {
	tasks chan func()
}

func newExecutor(queueDepth int) *executor {
	e := &executor{tasks: make(chan func(), queueDepth)}
	go e.run()
	return e
}

func (e *executor) run() {
	for task := range e.tasks {
		task()
	}
}

// Post enqueues task to run on the executor's goroutine without waiting
// for it to start or finish.
func (e *executor) Post(task func()) {
	e.tasks <- task
}

// Submit enqueues task and blocks until it has finished running.
func (e *executor) Submit(task func()) {
	done := make(chan struct{})
	e.tasks <- func() {
		task()
		close(done)
	}
	<-done
}

// Close stops accepting new work. Already-queued tasks still run.
func (e *executor) Close() {
	close(e.tasks)
}
