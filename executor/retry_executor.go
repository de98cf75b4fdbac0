package executor

import (
	"sync"
	"time"

	"github.com/tommyyama2020/corda/container"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/util"
	"go.uber.org/zap"
)

const RetryQueueName = "flow-retry"

var _ Executor = new(RetryExecutor)

// RetryExecutor polls the durable retry queue and re-drives flows from
// their last checkpoint. The queue entry is just the flow id; the safe
// point itself is re-read from storage at resume time.
type RetryExecutor struct {
	container *container.DIContainer
	manager   StateMachineManager
	wg        *sync.WaitGroup
	stop      chan struct{}
}

func NewRetryExecutor(container *container.DIContainer, manager StateMachineManager, wg *sync.WaitGroup) *RetryExecutor {
	return &RetryExecutor{
		container: container,
		manager:   manager,
		stop:      make(chan struct{}),
		wg:        wg,
	}
}

func (ex *RetryExecutor) Name() string {
	return "retry-executor"
}

func (ex *RetryExecutor) Start() error {
	fn := func() {
		res, err := ex.container.GetRetryQueue().Pop(RetryQueueName)
		if err != nil {
			logger.Error("error while polling retry queue", zap.Error(err))
			return
		}
		for _, r := range res {
			flowId := model.FlowId(r)
			if err := ex.manager.ResumeFromSafePoint(flowId); err != nil {
				logger.Error("error resuming flow from safe point", zap.String("flowId", r), zap.Error(err))
			}
		}
	}
	tw := util.NewTickWorker("retry-worker", time.Second, ex.stop, fn, ex.wg)
	tw.Start()
	logger.Info("retry executor started")
	return nil
}

func (ex *RetryExecutor) Stop() error {
	ex.stop <- struct{}{}
	return nil
}
