package fiber

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tommyyama2020/corda/model"
)

type stubTransaction struct{}

func (stubTransaction) Commit() error   { return nil }
func (stubTransaction) Rollback() error { return nil }

func TestEventsAreDeliveredInOrder(t *testing.T) {
	fb := NewFlowFiber(model.NewFlowId())
	events := []model.Event{
		model.TransactionCommitted{TxHash: "t1"},
		model.Wakeup{},
		model.AsyncOperationCompletion{Result: 42},
	}
	for _, e := range events {
		fb.ScheduleEvent(e)
	}
	for i, want := range events {
		select {
		case got := <-fb.Events():
			require.Equal(t, want, got, "event %d out of order", i)
		case <-time.After(time.Second):
			t.Fatal("mailbox delivery stalled")
		}
	}
}

func TestAtMostOneTransaction(t *testing.T) {
	fb := NewFlowFiber(model.NewFlowId())
	require.Nil(t, fb.Transaction())

	require.NoError(t, fb.BindTransaction(stubTransaction{}))
	err := fb.BindTransaction(stubTransaction{})
	var progErr model.ProgrammerError
	require.ErrorAs(t, err, &progErr)

	fb.UnbindTransaction()
	require.Nil(t, fb.Transaction())
	require.NoError(t, fb.BindTransaction(stubTransaction{}))
}

func TestWakeupFiresOnlyWhileSleeping(t *testing.T) {
	fb := NewFlowFiber(model.NewFlowId())

	// not sleeping: a stray timer firing is harmless
	fb.Wakeup()
	select {
	case e := <-fb.Events():
		t.Fatalf("unexpected event %T", e)
	case <-time.After(50 * time.Millisecond):
	}

	fb.MarkSleeping(time.Now().Add(time.Hour))
	require.True(t, fb.Sleeping())
	fb.Wakeup()
	require.False(t, fb.Sleeping())

	select {
	case e := <-fb.Events():
		require.IsType(t, model.Wakeup{}, e)
	case <-time.After(time.Second):
		t.Fatal("no wakeup event")
	}

	// the second wakeup for the same sleep is a no-op
	fb.Wakeup()
	select {
	case e := <-fb.Events():
		t.Fatalf("unexpected event %T", e)
	case <-time.After(50 * time.Millisecond):
	}
}
