package container

import (
	rd "github.com/go-redis/redis/v9"
	"github.com/google/uuid"
	"github.com/tommyyama2020/corda/analytics"
	"github.com/tommyyama2020/corda/cache"
	"github.com/tommyyama2020/corda/cluster"
	"github.com/tommyyama2020/corda/config"
	"github.com/tommyyama2020/corda/ledger"
	"github.com/tommyyama2020/corda/messaging"
	"github.com/tommyyama2020/corda/metrics"
	"github.com/tommyyama2020/corda/model"
	"github.com/tommyyama2020/corda/persistence"
	rdimpl "github.com/tommyyama2020/corda/persistence/redis"
	"github.com/tommyyama2020/corda/timers"
	"github.com/tommyyama2020/corda/util"
	"github.com/tommyyama2020/corda/vault"
)

// DIContainer wires the node's collaborators once at startup and hands
// them to the executor, the manager and the REST surface.
type DIContainer struct {
	initialized bool

	checkpointStorage persistence.CheckpointStorage
	database          persistence.Database
	dedupFacts        persistence.DeduplicationFactDao
	softLocks         *vault.SoftLockManager
	flowMessaging     messaging.FlowMessaging
	txTracker         ledger.TransactionTracker
	metricsRegistry   *metrics.Registry
	flowMetrics       *metrics.FlowMetrics
	timerManager      *timers.TimerManager
	sessionQueue      cluster.Queue
	retryQueue        cluster.DelayQueue
	flowStateCache    *cache.FlowStateCache
	dataCollector     *analytics.LogFileDataCollector
	ring              *cluster.Ring
	partyResolver     messaging.PartyResolver
	clock             util.Clock
	senderUUID        uuid.UUID

	CheckpointEncDec util.EncoderDecoder[model.Checkpoint]
}

func NewDiContainer(ring *cluster.Ring) *DIContainer {
	return &DIContainer{
		ring:       ring,
		clock:      util.SystemClock{},
		senderUUID: uuid.New(),
	}
}

// SetClock must be called before Init; tests install a manual clock here.
func (d *DIContainer) SetClock(clock util.Clock) {
	d.clock = clock
}

// SetPartyResolver must be called before Init; the agent installs cluster
// membership here when gossip is enabled.
func (d *DIContainer) SetPartyResolver(resolver messaging.PartyResolver) {
	d.partyResolver = resolver
}

func (d *DIContainer) setInitialized() {
	d.initialized = true
}

func (d *DIContainer) Init(conf config.Config) error {
	defer d.setInitialized()

	switch conf.EncoderDecoderType {
	default:
		d.CheckpointEncDec = util.NewJsonEncoderDecoder[model.Checkpoint]()
	}

	switch conf.StorageType {
	default:
		rdConf := rdimpl.Config{
			Addrs:     conf.RedisConfig.Addrs,
			Namespace: conf.RedisConfig.Namespace,
		}
		d.checkpointStorage = rdimpl.NewRedisCheckpointStore(rdConf)
		d.database = rdimpl.NewRedisDatabase(rdConf)
		d.dedupFacts = rdimpl.NewRedisDedupDao(rdConf)
		d.softLocks = vault.NewSoftLockManager(rdimpl.NewRedisSoftLockDao(rdConf))
		d.sessionQueue = cluster.NewQueue(rdimpl.NewRedisQueue(rdConf), d.ring)
		d.retryQueue = cluster.NewDelayQueue(rdimpl.NewRedisDelayQueue(rdConf), d.ring)
		trackerClient := rd.NewUniversalClient(&rd.UniversalOptions{Addrs: conf.RedisConfig.Addrs})
		d.txTracker = ledger.NewRedisTransactionTracker(trackerClient, conf.RedisConfig.Namespace)
	}

	d.flowMessaging = messaging.NewRedisFlowMessaging(d.sessionQueue, d.partyResolver)
	d.metricsRegistry = metrics.NewRegistry()
	d.flowMetrics = metrics.NewFlowMetrics(d.metricsRegistry, d.clock)
	maxDelay := conf.MaxTimerDelaySeconds
	if maxDelay <= 0 {
		maxDelay = 86400
	}
	d.timerManager = timers.NewTimerManager(maxDelay)
	d.timerManager.Init()
	d.flowStateCache = cache.NewFlowStateCache()
	if conf.AnalyticsLogFile != "" {
		collector, err := analytics.NewLogFileDataCollector(conf.AnalyticsLogFile)
		if err != nil {
			return err
		}
		d.dataCollector = collector
	}
	return nil
}

func (d *DIContainer) checkInitialized() {
	if !d.initialized {
		panic("container not initialized")
	}
}

func (d *DIContainer) GetCheckpointStorage() persistence.CheckpointStorage {
	d.checkInitialized()
	return d.checkpointStorage
}

func (d *DIContainer) GetDatabase() persistence.Database {
	d.checkInitialized()
	return d.database
}

func (d *DIContainer) GetDedupFactDao() persistence.DeduplicationFactDao {
	d.checkInitialized()
	return d.dedupFacts
}

func (d *DIContainer) GetSoftLockManager() *vault.SoftLockManager {
	d.checkInitialized()
	return d.softLocks
}

func (d *DIContainer) GetFlowMessaging() messaging.FlowMessaging {
	d.checkInitialized()
	return d.flowMessaging
}

func (d *DIContainer) GetTransactionTracker() ledger.TransactionTracker {
	d.checkInitialized()
	return d.txTracker
}

func (d *DIContainer) GetMetricsRegistry() *metrics.Registry {
	d.checkInitialized()
	return d.metricsRegistry
}

func (d *DIContainer) GetFlowMetrics() *metrics.FlowMetrics {
	d.checkInitialized()
	return d.flowMetrics
}

func (d *DIContainer) GetTimerManager() *timers.TimerManager {
	d.checkInitialized()
	return d.timerManager
}

func (d *DIContainer) GetSessionQueue() cluster.Queue {
	d.checkInitialized()
	return d.sessionQueue
}

func (d *DIContainer) GetRetryQueue() cluster.DelayQueue {
	d.checkInitialized()
	return d.retryQueue
}

func (d *DIContainer) GetFlowStateCache() *cache.FlowStateCache {
	d.checkInitialized()
	return d.flowStateCache
}

func (d *DIContainer) GetDataCollector() *analytics.LogFileDataCollector {
	return d.dataCollector
}

func (d *DIContainer) GetClock() util.Clock {
	return d.clock
}

func (d *DIContainer) GetSenderUUID() uuid.UUID {
	return d.senderUUID
}
