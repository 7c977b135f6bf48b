package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/robfig/cron/v3"
)

const purgeTimeout = 30 * time.Second

// ExpiredPurger deletes snapshots past their expiry. Stores with native
// expiry (redis) do not need one.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// IdleEvictor drops cart stores nobody has used for a while.
type IdleEvictor interface {
	EvictIdle(maxIdle time.Duration) int
}

// CartCleanupScheduler 장바구니 정리 스케줄러
// 만료된 스냅샷 삭제 + 오래 사용하지 않은 장바구니를 메모리에서 내림
type CartCleanupScheduler struct {
	cron    *cron.Cron
	spec    string
	purger  ExpiredPurger
	carts   IdleEvictor
	maxIdle time.Duration
}

// NewCartCleanupScheduler 장바구니 정리 스케줄러 생성. purger는 nil 가능
func NewCartCleanupScheduler(spec string, purger ExpiredPurger, carts IdleEvictor, maxIdle time.Duration) *CartCleanupScheduler {
	return &CartCleanupScheduler{
		cron:    cron.New(),
		spec:    spec,
		purger:  purger,
		carts:   carts,
		maxIdle: maxIdle,
	}
}

// Start 스케줄러 시작
func (s *CartCleanupScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		logger.Error("Failed to add cron job for cart cleanup", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Cart cleanup scheduler started", map[string]interface{}{
		"spec":     s.spec,
		"max_idle": s.maxIdle.String(),
	})
	return nil
}

// RunOnce runs one cleanup pass.
func (s *CartCleanupScheduler) RunOnce(ctx context.Context) {
	evicted := 0
	if s.carts != nil {
		evicted = s.carts.EvictIdle(s.maxIdle)
	}

	var purged int64
	if s.purger != nil {
		ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
		defer cancel()

		n, err := s.purger.PurgeExpired(ctx)
		if err != nil {
			logger.Error("Failed to purge expired cart snapshots", err)
			return
		}
		purged = n
	}

	logger.Info("Cart cleanup finished", map[string]interface{}{
		"evicted": evicted,
		"purged":  purged,
	})
}

// Stop 스케줄러 중지. 실행 중인 작업이 끝날 때까지 기다림
func (s *CartCleanupScheduler) Stop() {
	logger.Info("Stopping cart cleanup scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Cart cleanup scheduler stopped", nil)
}
