package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Callbacks run synchronously inside
// Advance, in due-time order, on the caller's goroutine.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*fakeTask
}

type fakeTask struct {
	clock   *Fake
	due     time.Time
	every   time.Duration
	seq     int
	fn      func()
	stopped bool
}

// NewFake returns a Fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now implements Clock.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc implements Clock.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	return f.schedule(d, 0, fn)
}

// Every implements Clock.
func (f *Fake) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		d = time.Nanosecond
	}
	return f.schedule(d, d, fn)
}

func (f *Fake) schedule(d, every time.Duration, fn func()) *fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	task := &fakeTask{
		clock: f,
		due:   f.now.Add(d),
		every: every,
		seq:   f.seq,
		fn:    fn,
	}
	f.tasks = append(f.tasks, task)
	return task
}

// Advance moves the clock forward by d, firing every task that falls due,
// including tasks scheduled by callbacks during the advance.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		task := f.nextDueLocked(target)
		if task == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = task.due
		if task.every > 0 {
			task.due = task.due.Add(task.every)
		} else {
			task.stopped = true
			f.removeLocked(task)
		}
		fn := task.fn
		f.mu.Unlock()
		fn()
	}
}

// Pending returns the number of live scheduled tasks.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *Fake) nextDueLocked(target time.Time) *fakeTask {
	var next *fakeTask
	for _, task := range f.tasks {
		if task.due.After(target) {
			continue
		}
		if next == nil || task.due.Before(next.due) || (task.due.Equal(next.due) && task.seq < next.seq) {
			next = task
		}
	}
	return next
}

func (f *Fake) removeLocked(task *fakeTask) {
	for i, t := range f.tasks {
		if t == task {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return
		}
	}
}

func (t *fakeTask) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.clock.removeLocked(t)
}
