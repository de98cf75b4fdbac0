package flow

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RussellLuo/timingwheel"
	"github.com/tommyyama2020/corda/container"
	"github.com/tommyyama2020/corda/executor"
	"github.com/tommyyama2020/corda/fiber"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/model"
	"go.uber.org/zap"
)

var ErrFlowTimedOut = errors.New("flow timed out")

var _ executor.StateMachineManager = new(Manager)

// Manager tracks the node's live fibers, the session-to-flow bindings and
// the per-flow timeouts, and owns the durable retry path. Transitions are
// realized through the action executor; the manager is where their
// failures and the flow lifecycle meet.
type Manager struct {
	container      *container.DIContainer
	actionExecutor *executor.ActionExecutor
	flowTimeout    time.Duration
	retryDelay     time.Duration

	mu              sync.Mutex
	fibers          map[model.FlowId]*fiber.FlowFiber
	sessionBindings map[model.SessionId]model.FlowId
	timeouts        map[model.FlowId]*timingwheel.Timer
}

func NewManager(container *container.DIContainer, actionExecutor *executor.ActionExecutor, flowTimeout time.Duration, retryDelay time.Duration) *Manager {
	m := &Manager{
		container:       container,
		actionExecutor:  actionExecutor,
		flowTimeout:     flowTimeout,
		retryDelay:      retryDelay,
		fibers:          make(map[model.FlowId]*fiber.FlowFiber),
		sessionBindings: make(map[model.SessionId]model.FlowId),
		timeouts:        make(map[model.FlowId]*timingwheel.Timer),
	}
	actionExecutor.SetManager(m)
	return m
}

// AddFlow registers a fresh fiber, or returns the live one for the id.
func (m *Manager) AddFlow(flowId model.FlowId) *fiber.FlowFiber {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fb, ok := m.fibers[flowId]; ok {
		return fb
	}
	fb := fiber.NewFlowFiber(flowId)
	m.fibers[flowId] = fb
	return fb
}

func (m *Manager) GetFlow(flowId model.FlowId) (*fiber.FlowFiber, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fb, ok := m.fibers[flowId]
	return fb, ok
}

// ExecuteTransition runs the actions synchronously on the caller's
// goroutine.
func (m *Manager) ExecuteTransition(fb *fiber.FlowFiber, actions []model.Action) error {
	return m.actionExecutor.ExecuteTransition(fb, actions)
}

// SubmitTransition hands the actions to the executor pool.
func (m *Manager) SubmitTransition(fb *fiber.FlowFiber, actions []model.Action) error {
	return m.actionExecutor.Execute(executor.TransitionRequest{Fiber: fb, Actions: actions})
}

func (m *Manager) AddSessionBinding(flowId model.FlowId, sessionId model.SessionId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bound, ok := m.sessionBindings[sessionId]; ok && bound != flowId {
		return model.NewProgrammerError("session %s already bound to flow %s", sessionId, bound)
	}
	m.sessionBindings[sessionId] = flowId
	return nil
}

// RemoveSessionBindings drops the whole set under one lock.
func (m *Manager) RemoveSessionBindings(sessionIds []model.SessionId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sessionId := range sessionIds {
		delete(m.sessionBindings, sessionId)
	}
	return nil
}

func (m *Manager) FlowForSession(sessionId model.SessionId) (model.FlowId, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	flowId, ok := m.sessionBindings[sessionId]
	return flowId, ok
}

func (m *Manager) SignalFlowHasStarted(flowId model.FlowId) {
	m.container.GetFlowStateCache().SaveFlowState(flowId, model.RUNNING)
	logger.Info("flow started", zap.String("flowId", string(flowId)))
}

func (m *Manager) RemoveFlow(flowId model.FlowId, reason model.FlowRemovalReason, lastState model.FlowState) error {
	if err := m.CancelFlowTimeout(flowId); err != nil {
		return err
	}
	m.mu.Lock()
	for sessionId, bound := range m.sessionBindings {
		if bound == flowId {
			delete(m.sessionBindings, sessionId)
		}
	}
	delete(m.fibers, flowId)
	m.mu.Unlock()
	m.container.GetFlowStateCache().SaveFlowState(flowId, model.REMOVED)
	logger.Info("flow removed",
		zap.String("flowId", string(flowId)),
		zap.String("reason", reason.String()),
		zap.Int("lastState", int(lastState)))
	return nil
}

// RetryFlowFromSafePoint schedules a durable re-drive of the flow from its
// last checkpoint. Durable state is untouched here; the resume path
// re-reads it.
func (m *Manager) RetryFlowFromSafePoint(flowId model.FlowId, currentState model.FlowState) error {
	m.container.GetFlowStateCache().SaveFlowState(flowId, currentState)
	logger.Info("scheduling flow retry from safe point", zap.String("flowId", string(flowId)))
	return m.container.GetRetryQueue().PushWithDelay(executor.RetryQueueName, string(flowId), m.retryDelay, []byte(flowId))
}

// ResumeFromSafePoint rebuilds the fiber from the durable checkpoint and
// wakes it. Session bindings recorded in the checkpoint are restored so
// inbound messages find the flow again.
func (m *Manager) ResumeFromSafePoint(flowId model.FlowId) error {
	data, err := m.container.GetCheckpointStorage().GetCheckpoint(flowId)
	if err != nil {
		return err
	}
	checkpoint, err := m.container.CheckpointEncDec.Decode(data)
	if err != nil {
		return fmt.Errorf("can not decode checkpoint for flow %s: %w", flowId, err)
	}
	fb := m.AddFlow(flowId)
	for sessionId := range checkpoint.Sessions {
		if err := m.AddSessionBinding(flowId, sessionId); err != nil {
			return err
		}
	}
	m.container.GetFlowStateCache().SaveFlowState(flowId, model.RUNNING)
	logger.Info("resuming flow from safe point",
		zap.String("flowId", string(flowId)),
		zap.Int("suspendCount", checkpoint.SuspendCount))
	fb.ScheduleEvent(model.Wakeup{})
	return nil
}

func (m *Manager) ScheduleFlowTimeout(flowId model.FlowId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if timer, ok := m.timeouts[flowId]; ok {
		timer.Stop()
	}
	timer := m.container.GetTimerManager().AddTask(func() {
		m.fireFlowTimeout(flowId)
	}, m.flowTimeout)
	m.timeouts[flowId] = timer
	return nil
}

// CancelFlowTimeout is a no-op when nothing is armed.
func (m *Manager) CancelFlowTimeout(flowId model.FlowId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if timer, ok := m.timeouts[flowId]; ok {
		timer.Stop()
		delete(m.timeouts, flowId)
	}
	return nil
}

func (m *Manager) fireFlowTimeout(flowId model.FlowId) {
	m.mu.Lock()
	delete(m.timeouts, flowId)
	fb, ok := m.fibers[flowId]
	m.mu.Unlock()
	if !ok {
		return
	}
	logger.Warn("flow timed out", zap.String("flowId", string(flowId)))
	fb.ScheduleEvent(model.Error{Err: ErrFlowTimedOut})
}

// DeliverSessionMessage routes an inbound message to the fiber bound to
// its session.
func (m *Manager) DeliverSessionMessage(event model.SessionMessageDelivered) error {
	flowId, ok := m.FlowForSession(event.SessionId)
	if !ok {
		return fmt.Errorf("no flow bound to session %s", event.SessionId)
	}
	fb, ok := m.GetFlow(flowId)
	if !ok {
		return fmt.Errorf("no live fiber for flow %s", flowId)
	}
	fb.ScheduleEvent(event)
	return nil
}
