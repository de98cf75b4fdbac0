package executor

import (
	"fmt"
	"sync"

	"github.com/tommyyama2020/corda/container"
	"github.com/tommyyama2020/corda/fiber"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/util"
	"go.uber.org/zap"
)

// StateMachineManager is the slice of the flow manager the executor
// delegates to for session bindings, flow lifecycle and timeouts.
type StateMachineManager interface {
	AddSessionBinding(flowId model.FlowId, sessionId model.SessionId) error
	RemoveSessionBindings(sessionIds []model.SessionId) error
	SignalFlowHasStarted(flowId model.FlowId)
	RemoveFlow(flowId model.FlowId, reason model.FlowRemovalReason, lastState model.FlowState) error
	RetryFlowFromSafePoint(flowId model.FlowId, currentState model.FlowState) error
	ResumeFromSafePoint(flowId model.FlowId) error
	ScheduleFlowTimeout(flowId model.FlowId) error
	CancelFlowTimeout(flowId model.FlowId) error
}

// TransitionRequest carries one state machine transition: the ordered
// actions to realize on behalf of one fiber. Callers submit at most one
// request per fiber at a time.
type TransitionRequest struct {
	Fiber   *fiber.FlowFiber
	Actions []model.Action
}

var _ Executor = new(ActionExecutor)

// ActionExecutor realizes the side effects requested by flow state machine
// transitions. It holds no per-flow state; everything it touches lives in
// the container or on the fiber it is given.
type ActionExecutor struct {
	container *container.DIContainer
	manager   StateMachineManager
	capacity  int
	worker    *util.Worker
	wg        *sync.WaitGroup
}

func NewActionExecutor(container *container.DIContainer, capacity int, wg *sync.WaitGroup) *ActionExecutor {
	return &ActionExecutor{
		container: container,
		capacity:  capacity,
		wg:        wg,
	}
}

// SetManager breaks the construction cycle between the executor and the
// state machine manager.
func (ex *ActionExecutor) SetManager(manager StateMachineManager) {
	ex.manager = manager
}

func (ex *ActionExecutor) handler(task util.Task) error {
	req, ok := task.(TransitionRequest)
	if !ok {
		return fmt.Errorf("can not handle task of type other than executor.TransitionRequest")
	}
	return ex.ExecuteTransition(req.Fiber, req.Actions)
}

func (ex *ActionExecutor) Start() error {
	ex.worker = util.NewWorker("action-executor", ex.wg, ex.handler, ex.capacity)
	ex.worker.Start()
	logger.Info("action executor started")
	return nil
}

func (ex *ActionExecutor) Stop() error {
	ex.worker.Stop()
	return nil
}

func (ex *ActionExecutor) Name() string {
	return "action-executor"
}

// Execute submits a transition to the executor pool.
func (ex *ActionExecutor) Execute(request TransitionRequest) error {
	ex.worker.Sender() <- request
	return nil
}

// ExecuteTransition runs the transition's actions in order and stops at
// the first failure, which escalates to the state machine layer.
func (ex *ActionExecutor) ExecuteTransition(fb *fiber.FlowFiber, actions []model.Action) error {
	for _, act := range actions {
		if err := ex.ExecuteAction(fb, act); err != nil {
			logger.Error("error executing action",
				zap.String("flowId", string(fb.Id)),
				zap.String("action", model.Name(act)),
				zap.Error(err))
			ex.container.GetDataCollector().RecordActionFailure(fb.Id, model.Name(act), err.Error())
			return err
		}
		ex.container.GetDataCollector().RecordActionSuccess(fb.Id, model.Name(act))
	}
	return nil
}

// ExecuteAction performs one action. Dispatch over the action union is
// exhaustive; an unknown variant is a programmer error, never a silent
// fallthrough.
func (ex *ActionExecutor) ExecuteAction(fb *fiber.FlowFiber, act model.Action) error {
	switch a := act.(type) {
	case model.TrackTransaction:
		return ex.executeTrackTransaction(fb, a)
	case model.PersistCheckpoint:
		return ex.executePersistCheckpoint(fb, a)
	case model.PersistDeduplicationFacts:
		return ex.executePersistDeduplicationFacts(fb, a)
	case model.AcknowledgeMessages:
		return ex.executeAcknowledgeMessages(fb, a)
	case model.PropagateErrors:
		return ex.executePropagateErrors(fb, a)
	case model.ScheduleEvent:
		fb.ScheduleEvent(a.Event)
		return nil
	case model.SleepUntil:
		return ex.executeSleepUntil(fb, a)
	case model.RemoveCheckpoint:
		return ex.executeRemoveCheckpoint(fb, a)
	case model.SendInitial:
		return ex.container.GetFlowMessaging().SendSessionMessage(a.Destination, a.Initialise, ex.senderDeduplicationId(a.DeduplicationId))
	case model.SendExisting:
		return ex.container.GetFlowMessaging().SendSessionMessage(a.PeerParty, a.Message, ex.senderDeduplicationId(a.DeduplicationId))
	case model.AddSessionBinding:
		return ex.manager.AddSessionBinding(a.FlowId, a.SessionId)
	case model.RemoveSessionBindings:
		return ex.manager.RemoveSessionBindings(a.SessionIds)
	case model.SignalFlowHasStarted:
		ex.manager.SignalFlowHasStarted(a.FlowId)
		return nil
	case model.RemoveFlow:
		return ex.manager.RemoveFlow(a.FlowId, a.RemovalReason, a.LastState)
	case model.CreateTransaction:
		return ex.executeCreateTransaction(fb)
	case model.RollbackTransaction:
		return ex.executeRollbackTransaction(fb)
	case model.CommitTransaction:
		return ex.executeCommitTransaction(fb)
	case model.ExecuteAsyncOperation:
		return ex.executeAsyncOperation(fb, a)
	case model.ReleaseSoftLocks:
		if a.LockId == nil {
			return nil
		}
		return ex.container.GetSoftLockManager().ReleaseSoftLocks(*a.LockId)
	case model.RetryFlowFromSafePoint:
		return ex.manager.RetryFlowFromSafePoint(fb.Id, a.CurrentState)
	case model.ScheduleFlowTimeout:
		return ex.manager.ScheduleFlowTimeout(a.FlowId)
	case model.CancelFlowTimeout:
		return ex.manager.CancelFlowTimeout(a.FlowId)
	default:
		return model.NewProgrammerError("unhandled action %T", act)
	}
}

func (ex *ActionExecutor) senderDeduplicationId(id model.DeduplicationId) model.SenderDeduplicationId {
	senderUUID := ex.container.GetSenderUUID()
	return model.SenderDeduplicationId{DeduplicationId: id, SenderUUID: &senderUUID}
}

func (ex *ActionExecutor) boundTransaction(fb *fiber.FlowFiber) (model.Transaction, error) {
	tx := fb.Transaction()
	if tx == nil {
		return nil, model.NewProgrammerError("fiber %s has no database transaction", fb.Id)
	}
	return tx, nil
}

func (ex *ActionExecutor) executeTrackTransaction(fb *fiber.FlowFiber, a model.TrackTransaction) error {
	ex.container.GetTransactionTracker().Subscribe(a.TxHash, func(txHash string, err error) {
		if err != nil {
			fb.ScheduleEvent(model.Error{Err: err})
			return
		}
		fb.ScheduleEvent(model.TransactionCommitted{TxHash: txHash})
	})
	return nil
}

func (ex *ActionExecutor) executePersistCheckpoint(fb *fiber.FlowFiber, a model.PersistCheckpoint) error {
	tx, err := ex.boundTransaction(fb)
	if err != nil {
		return err
	}
	data, err := ex.container.CheckpointEncDec.Encode(*a.Checkpoint)
	if err != nil {
		return err
	}
	store := ex.container.GetCheckpointStorage()
	if a.IsUpdate {
		err = store.UpdateCheckpoint(tx, a.Id, data)
	} else {
		err = store.AddCheckpoint(tx, a.Id, data)
	}
	if err != nil {
		return err
	}
	ex.container.GetFlowMetrics().RecordCheckpoint(len(data))
	return nil
}

func (ex *ActionExecutor) executePersistDeduplicationFacts(fb *fiber.FlowFiber, a model.PersistDeduplicationFacts) error {
	tx, err := ex.boundTransaction(fb)
	if err != nil {
		return err
	}
	for _, handler := range a.Handlers {
		if err := handler.InsideDatabaseTransaction(tx); err != nil {
			return err
		}
	}
	return nil
}

// executeAcknowledgeMessages never fails the transition: the business
// transaction has already committed, and a missed acknowledgement only
// risks a redelivery the deduplication facts will discard.
func (ex *ActionExecutor) executeAcknowledgeMessages(fb *fiber.FlowFiber, a model.AcknowledgeMessages) error {
	for _, handler := range a.Handlers {
		if err := handler.AfterDatabaseTransaction(); err != nil {
			logger.Info("failed to acknowledge message after commit",
				zap.String("flowId", string(fb.Id)),
				zap.Error(err))
		}
	}
	return nil
}

func (ex *ActionExecutor) executePropagateErrors(fb *fiber.FlowFiber, a model.PropagateErrors) error {
	for _, errMsg := range a.Errors {
		logger.Warn("propagating error to peers",
			zap.String("flowId", string(fb.Id)),
			zap.String("errorId", errMsg.ErrorId.String()),
			zap.String("message", errMsg.Message))
	}
	for _, session := range a.Sessions {
		if session.Initiated.Kind != model.SESSION_LIVE {
			continue
		}
		sink := session.Initiated.PeerSinkSessionId
		for _, errMsg := range a.Errors {
			errMsg := errMsg
			message := model.ExistingSessionMessage{
				RecipientSessionId: sink,
				Error:              &errMsg,
			}
			dedupId := model.SenderDeduplicationId{
				DeduplicationId: model.DeduplicationIdForError(errMsg.ErrorId, sink),
				SenderUUID:      a.SenderUUID,
			}
			if err := ex.container.GetFlowMessaging().SendSessionMessage(session.Peer, message, dedupId); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ex *ActionExecutor) executeSleepUntil(fb *fiber.FlowFiber, a model.SleepUntil) error {
	delay := a.Time.Sub(ex.container.GetClock().Now())
	if delay < 0 {
		delay = 0
	}
	fb.MarkSleeping(a.Time)
	ex.container.GetTimerManager().AddTask(fb.Wakeup, delay)
	return nil
}

func (ex *ActionExecutor) executeRemoveCheckpoint(fb *fiber.FlowFiber, a model.RemoveCheckpoint) error {
	tx, err := ex.boundTransaction(fb)
	if err != nil {
		return err
	}
	return ex.container.GetCheckpointStorage().RemoveCheckpoint(tx, a.Id)
}

func (ex *ActionExecutor) executeCreateTransaction(fb *fiber.FlowFiber) error {
	if fb.Transaction() != nil {
		return model.NewProgrammerError("fiber %s already has a database transaction", fb.Id)
	}
	tx, err := ex.container.GetDatabase().BeginTransaction()
	if err != nil {
		return err
	}
	return fb.BindTransaction(tx)
}

func (ex *ActionExecutor) executeRollbackTransaction(fb *fiber.FlowFiber) error {
	tx := fb.Transaction()
	if tx == nil {
		return nil
	}
	defer fb.UnbindTransaction()
	return tx.Rollback()
}

// executeCommitTransaction unbinds the transaction on every path so a
// failed commit can never leave a stale handle on the fiber.
func (ex *ActionExecutor) executeCommitTransaction(fb *fiber.FlowFiber) error {
	tx, err := ex.boundTransaction(fb)
	if err != nil {
		return err
	}
	defer fb.UnbindTransaction()
	return tx.Commit()
}

func (ex *ActionExecutor) executeAsyncOperation(fb *fiber.FlowFiber, a model.ExecuteAsyncOperation) error {
	results, err := a.Operation.Execute(a.DeduplicationId)
	if err != nil {
		return model.AsyncOperationTransitionError{Cause: err}
	}
	go func() {
		result := <-results
		if result.Err != nil {
			fb.ScheduleEvent(model.AsyncOperationThrows{Err: result.Err})
			return
		}
		fb.ScheduleEvent(model.AsyncOperationCompletion{Result: result.Value})
	}()
	return nil
}
