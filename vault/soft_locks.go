package vault

import (
	"github.com/google/uuid"
	"github.com/tommyyama2020/corda/logger"
	"github.com/tommyyama2020/corda/persistence"
	"go.uber.org/zap"
)

// SoftLockManager reserves vault states for an in-flight flow so two flows
// cannot spend the same state. Locks are keyed by a lock uuid, usually the
// flow id, and released in one shot when the flow no longer needs them.
type SoftLockManager struct {
	dao persistence.SoftLockDao
}

func NewSoftLockManager(dao persistence.SoftLockDao) *SoftLockManager {
	return &SoftLockManager{dao: dao}
}

func (m *SoftLockManager) Lock(lockId uuid.UUID, stateRefs []string) error {
	if len(stateRefs) == 0 {
		return nil
	}
	return m.dao.Lock(lockId, stateRefs)
}

func (m *SoftLockManager) ReleaseSoftLocks(lockId uuid.UUID) error {
	logger.Debug("releasing soft locks", zap.String("lockId", lockId.String()))
	return m.dao.Release(lockId)
}

func (m *SoftLockManager) Held(lockId uuid.UUID) ([]string, error) {
	return m.dao.Held(lockId)
}
