package agent

import (
	"sync"
	"time"

	"github.com/tommyyama2020/corda/cluster"
	"github.com/tommyyama2020/corda/config"
	"github.com/tommyyama2020/corda/container"
	"github.com/tommyyama2020/corda/executor"
	"github.com/tommyyama2020/corda/flow"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/messaging"
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/rest"
	"github.com/tommyyama2020/corda/service"
)

const defaultFlowTimeoutSeconds = 300
const defaultRetryDelaySeconds = 5

// Agent is one flow execution node: the container, the executors, the
// state machine manager, the inbound message poller and the http surface,
// started and stopped together.
type Agent struct {
	Config config.Config

	ring           *cluster.Ring
	membership     *cluster.Membership
	container      *container.DIContainer
	manager        *flow.Manager
	actionExecutor *executor.ActionExecutor
	retryExecutor  *executor.RetryExecutor
	sessionPoller  *messaging.SessionMessagePoller
	flowService    *service.FlowExecutionService
	httpServer     *rest.Server

	shutdown     bool
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(conf config.Config) (*Agent, error) {
	a := &Agent{
		Config: conf,
	}
	setup := []func() error{
		a.setupCluster,
		a.setupContainer,
		a.setupManager,
		a.setupSessionPoller,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupCluster() error {
	partitions := a.Config.PartitionCount
	if partitions <= 0 {
		partitions = 16
	}
	a.ring = cluster.NewRing(cluster.RingConfig{PartitionCount: partitions})
	clusterConf := a.Config.ClusterConfig
	if clusterConf.BindAddr == "" {
		// single node, no gossip
		return a.ring.Join(clusterConf.NodeName, "", true)
	}
	membership, err := cluster.NewMembership(a.ring, cluster.Config{
		NodeName:       clusterConf.NodeName,
		BindAddr:       clusterConf.BindAddr,
		Tags:           clusterConf.Tags,
		StartJoinAddrs: clusterConf.StartJoinAddrs,
		PartitionCount: partitions,
	})
	if err != nil {
		return err
	}
	a.membership = membership
	return nil
}

func (a *Agent) setupContainer() error {
	a.container = container.NewDiContainer(a.ring)
	if a.membership != nil {
		a.container.SetPartyResolver(a.membership)
	}
	return a.container.Init(a.Config)
}

func (a *Agent) setupManager() error {
	capacity := a.Config.ActionExecutorCapacity
	if capacity <= 0 {
		capacity = 512
	}
	flowTimeout := a.Config.FlowTimeoutSeconds
	if flowTimeout <= 0 {
		flowTimeout = defaultFlowTimeoutSeconds
	}
	retryDelay := a.Config.RetryDelaySeconds
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelaySeconds
	}
	a.actionExecutor = executor.NewActionExecutor(a.container, capacity, &a.wg)
	a.manager = flow.NewManager(a.container, a.actionExecutor,
		time.Duration(flowTimeout)*time.Second,
		time.Duration(retryDelay)*time.Second)
	a.retryExecutor = executor.NewRetryExecutor(a.container, a.manager, &a.wg)
	a.flowService = service.NewFlowExecutionService(a.container, a.manager)
	return nil
}

func (a *Agent) setupSessionPoller() error {
	a.sessionPoller = messaging.NewSessionMessagePoller(
		model.Party(a.Config.LocalParty),
		a.container.GetSessionQueue(),
		a.container.GetDedupFactDao(),
		a.manager,
		32,
		&a.wg,
	)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.container, a.flowService)
	return err
}

func (a *Agent) Start() error {
	if err := a.actionExecutor.Start(); err != nil {
		return err
	}
	if err := a.retryExecutor.Start(); err != nil {
		return err
	}
	if err := a.sessionPoller.Start(); err != nil {
		return err
	}
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server stopped")
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down node")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		a.sessionPoller.Stop,
		a.retryExecutor.Stop,
		a.actionExecutor.Stop,
		a.httpServer.Stop,
		func() error {
			a.container.GetTimerManager().Stop()
			return nil
		},
	}
	if a.membership != nil {
		shutdown = append(shutdown, a.membership.Leave)
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
