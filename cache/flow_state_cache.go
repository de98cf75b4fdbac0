package cache

import (
	"time"

	c "github.com/patrickmn/go-cache"
	"github.com/tommyyama2020/corda/model"
)

// FlowStateCache keeps the last observed state of each flow for cheap
// status queries without a checkpoint read.
type FlowStateCache struct {
	cache *c.Cache
}

func NewFlowStateCache() *FlowStateCache {
	return &FlowStateCache{
		cache: c.New(c.NoExpiration, 10*time.Minute),
	}
}

func (ch *FlowStateCache) SaveFlowState(flowId model.FlowId, state model.FlowState) {
	ch.cache.Set(string(flowId), state, c.NoExpiration)
}

func (ch *FlowStateCache) GetFlowState(flowId model.FlowId) (model.FlowState, bool) {
	v, found := ch.cache.Get(string(flowId))
	if !found {
		return 0, false
	}
	state, ok := v.(model.FlowState)
	return state, ok
}
