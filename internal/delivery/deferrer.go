package delivery

import "time"

// Deferrer runs a task once after a delay. Scheduled tasks cannot be
// cancelled and their outcome is never reported back.
type Deferrer interface {
	After(d time.Duration, task func())
}

// TimerDeferrer schedules tasks on runtime timers.
type TimerDeferrer struct{}

// After starts an independent timer for task.
func (TimerDeferrer) After(d time.Duration, task func()) {
	time.AfterFunc(d, task)
}
