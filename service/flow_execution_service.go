package service

import (
	"encoding/json"

	"github.com/tommyyama2020/corda/container"
	"github.com/tommyyama2020/corda/flow"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/model"
	"go.uber.org/zap"
)

// FlowExecutionService starts flows on behalf of the REST surface and
// answers status queries.
type FlowExecutionService struct {
	container *container.DIContainer
	manager   *flow.Manager
}

func NewFlowExecutionService(container *container.DIContainer, manager *flow.Manager) *FlowExecutionService {
	return &FlowExecutionService{
		container: container,
		manager:   manager,
	}
}

// StartFlow creates the fiber and runs the bootstrap transition: the first
// checkpoint is added inside a transaction and the flow is signalled live
// with its timeout armed.
func (s *FlowExecutionService) StartFlow(flowName string, input map[string]any) (model.FlowId, error) {
	flowId := model.NewFlowId()
	fb := s.manager.AddFlow(flowId)

	flowState, err := json.Marshal(map[string]any{"flowName": flowName, "input": input})
	if err != nil {
		return "", err
	}
	checkpoint := &model.Checkpoint{
		FlowId:    flowId,
		FlowState: flowState,
	}
	actions := []model.Action{
		model.CreateTransaction{},
		model.PersistCheckpoint{Id: flowId, Checkpoint: checkpoint},
		model.CommitTransaction{},
		model.SignalFlowHasStarted{FlowId: flowId},
		model.ScheduleFlowTimeout{FlowId: flowId},
	}
	logger.Info("starting flow", zap.String("flow", flowName), zap.String("flowId", string(flowId)))
	if err := s.manager.ExecuteTransition(fb, actions); err != nil {
		return "", err
	}
	return flowId, nil
}

func (s *FlowExecutionService) GetFlowState(flowId model.FlowId) (model.FlowState, bool) {
	return s.container.GetFlowStateCache().GetFlowState(flowId)
}
