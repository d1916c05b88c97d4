// Package historian drains the session action queue from Redis into Postgres
// in batches and marks sessions abandoned once they go quiet.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/sketchchain/internal/cache"
	"github.com/jason-s-yu/sketchchain/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Store persists what the historian collects.
type Store interface {
	InsertActions(ctx context.Context, recs []cache.SessionActionRecord) error
	MarkAbandoned(ctx context.Context, sessionID uuid.UUID) error
}

// PGStore writes to Postgres, one transaction per batch.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s PGStore) InsertActions(ctx context.Context, recs []cache.SessionActionRecord) error {
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := database.InsertSessionActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %d of session %s: %w", rec.ActionIndex, rec.SessionID, err)
			}
		}
		return nil
	})
}

func (s PGStore) MarkAbandoned(ctx context.Context, sessionID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return database.MarkSessionAbandonedTx(ctx, tx, sessionID)
	})
}

// Config tunes batching and the inactivity sweep.
type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
	Inactivity time.Duration // quiet time before a session counts as abandoned
	SweepEvery time.Duration
}

// DefaultConfig mirrors the defaults of the historian binary.
func DefaultConfig() Config {
	return Config{
		Queue:      cache.DefaultQueueName,
		BatchSize:  20,
		FlushDelay: 500 * time.Millisecond,
		PopTimeout: 3 * time.Second,
		Inactivity: 10 * time.Minute,
		SweepEvery: time.Minute,
	}
}

// Service pops action records and hands them to a Store.
type Service struct {
	rdb   *redis.Client
	store Store
	cfg   Config
	log   *logrus.Entry
	now   func() time.Time

	batchMu      sync.Mutex
	batch        []cache.SessionActionRecord
	lastActivity sync.Map // uuid.UUID (session) -> time.Time
}

// New builds a service. Zero Config fields fall back to DefaultConfig.
func New(rdb *redis.Client, store Store, cfg Config, log *logrus.Entry) *Service {
	def := DefaultConfig()
	if cfg.Queue == "" {
		cfg.Queue = def.Queue
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = def.FlushDelay
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = def.PopTimeout
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = def.Inactivity
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = def.SweepEvery
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		rdb:   rdb,
		store: store,
		cfg:   cfg,
		log:   log.WithField("component", "historian"),
		now:   time.Now,
		batch: make([]cache.SessionActionRecord, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is still batched.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.readLoop(ctx) }()
	go func() { defer wg.Done(); s.flushLoop(ctx) }()
	go func() { defer wg.Done(); s.inactivityLoop(ctx) }()

	s.log.Infof("historian started, queue %q", s.cfg.Queue)
	<-ctx.Done()
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("historian stopped")
}

// readLoop uses BLPop with a timeout so cancellation is noticed.
func (s *Service) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		res, err := s.rdb.BLPop(ctx, s.cfg.PopTimeout, s.cfg.Queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				s.log.Errorf("BLPop: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload.
		if len(res) < 2 {
			continue
		}
		if err := s.Handle(ctx, []byte(res[1])); err != nil {
			s.log.Warnf("dropping action record: %v", err)
		}
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Handle decodes one queued record and batches it, flushing once the batch is full.
func (s *Service) Handle(ctx context.Context, payload []byte) error {
	var rec cache.SessionActionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("invalid action record: %w", err)
	}
	if rec.SessionID == uuid.Nil {
		return errors.New("action record has no session id")
	}

	s.lastActivity.Store(rec.SessionID, s.now())

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
	return nil
}

// Flush writes the pending batch. A failed batch is logged and dropped.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]cache.SessionActionRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.store.InsertActions(ctx, pending); err != nil {
		s.log.Errorf("failed to flush %d actions: %v", len(pending), err)
		return
	}
	s.log.Debugf("flushed %d actions", len(pending))
}

// Pending returns how many records wait for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// Sweep marks every session quiet for longer than the inactivity window as
// abandoned and stops tracking it.
func (s *Service) Sweep(ctx context.Context) {
	now := s.now()
	s.lastActivity.Range(func(key, val interface{}) bool {
		sessionID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.cfg.Inactivity {
			return true
		}
		if err := s.store.MarkAbandoned(ctx, sessionID); err != nil {
			s.log.Warnf("failed to mark session %s abandoned: %v", sessionID, err)
			return true
		}
		s.log.Infof("marked session %s abandoned after %s of inactivity", sessionID, now.Sub(last).Round(time.Second))
		s.lastActivity.Delete(sessionID)
		return true
	})
}
