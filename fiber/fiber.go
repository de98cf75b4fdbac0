package fiber

import (
	"sync"
	"time"

	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/model"
	"go.uber.org/zap"
)

const mailboxCapacity = 1024

// FlowFiber hosts one flow. Events scheduled on the fiber are delivered in
// FIFO order to the single consumer driving its state machine. At most one
// database transaction is bound to a fiber at a time; sleep is a fiber
// state ended by a Wakeup event rather than a blocked goroutine, so
// shutdown can interrupt it.
type FlowFiber struct {
	Id model.FlowId

	mu            sync.Mutex
	txn           model.Transaction
	sleepingUntil *time.Time
	mailbox       chan model.Event
}

func NewFlowFiber(id model.FlowId) *FlowFiber {
	return &FlowFiber{
		Id:      id,
		mailbox: make(chan model.Event, mailboxCapacity),
	}
}

func (f *FlowFiber) ScheduleEvent(event model.Event) {
	f.mailbox <- event
}

// Events is the fiber's mailbox, read by the single consumer driving the
// flow's state machine.
func (f *FlowFiber) Events() <-chan model.Event {
	return f.mailbox
}

func (f *FlowFiber) BindTransaction(tx model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txn != nil {
		return model.NewProgrammerError("fiber %s already has a database transaction", f.Id)
	}
	f.txn = tx
	return nil
}

func (f *FlowFiber) Transaction() model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txn
}

func (f *FlowFiber) UnbindTransaction() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txn = nil
}

func (f *FlowFiber) MarkSleeping(until time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleepingUntil = &until
}

func (f *FlowFiber) Sleeping() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sleepingUntil != nil
}

// Wakeup ends the sleep, if any, by scheduling a Wakeup event. Calling it
// on a fiber that is not sleeping does nothing, which makes a cancelled
// sleep timer harmless.
func (f *FlowFiber) Wakeup() {
	f.mu.Lock()
	if f.sleepingUntil == nil {
		f.mu.Unlock()
		return
	}
	f.sleepingUntil = nil
	f.mu.Unlock()
	logger.Debug("waking up fiber", zap.String("flowId", string(f.Id)))
	f.ScheduleEvent(model.Wakeup{})
}
