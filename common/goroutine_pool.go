package common

import (
	"runtime"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
)

type PoolConfig struct {
	MaxWorkers int
}

// NewPool creates the worker pool used for report evaluation. A non
// positive MaxWorkers uses one worker per CPU.
func NewPool(config PoolConfig) (*ants.Pool, error) {
	workers := config.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		log.Errorf("Failed to create ants goroutine_pool: %v", err)
		return nil, err
	}
	log.Debugf("goroutine_pool created, workers: %d", workers)
	return pool, nil
}
