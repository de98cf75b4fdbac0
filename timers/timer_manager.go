package timers

import (
	"time"

	"github.com/RussellLuo/timingwheel"
)

// TimerManager owns the node's single timing wheel. Sleep wakeups and flow
// timeouts are both armed here; cancelling is one Stop on the returned
// timer.
type TimerManager struct {
	wheel *timingwheel.TimingWheel
}

func NewTimerManager(maxDelaySeconds int64) *TimerManager {
	return &TimerManager{
		wheel: timingwheel.NewTimingWheel(time.Second, maxDelaySeconds),
	}
}

func (m *TimerManager) AddTask(task func(), delay time.Duration) *timingwheel.Timer {
	if delay < 0 {
		delay = 0
	}
	return m.wheel.AfterFunc(delay, task)
}

func (m *TimerManager) Init() {
	m.wheel.Start()
}

func (m *TimerManager) Stop() {
	m.wheel.Stop()
}
