// Package engine owns every write that changes scoring state.
//
// Each operation runs in one database transaction: a score write, the hole result it
// changes, the match state, the stat cascade when the match completes, and the round and
// tournament totals all commit together or not at all. Writes to the same match are
// serialized in-process and by a row lock on the match, so two concurrent scores can never
// both observe the transition into "completed".
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/matchplay/internal/events"
	"github.com/trentd187/matchplay/internal/models"
	"github.com/trentd187/matchplay/internal/scoring"
)

type Engine struct {
	db        *gorm.DB
	policy    scoring.HandicapPolicy
	publisher events.Publisher
	log       *logrus.Logger
	locks     *matchLocks
	now       func() time.Time
}

type Option func(*Engine)

// WithPublisher sets where committed match updates are sent. Defaults to dropping them.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithHandicapPolicy(p scoring.HandicapPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func New(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:        db,
		policy:    scoring.DefaultHandicapPolicy,
		publisher: events.Nop{},
		log:       logrus.StandardLogger(),
		locks:     newMatchLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// matchLocks hands out one mutex per match. Ordinary writes hold the shared side of
// all; RebuildAll takes it exclusively so nothing interleaves with a full replay.
// Mutexes are never evicted. Callers go through Engine.lockExisting, so there is at most
// one per row in the matches table.
type matchLocks struct {
	all     sync.RWMutex
	matches sync.Map // uuid.UUID -> *sync.Mutex
}

func newMatchLocks() *matchLocks {
	return &matchLocks{}
}

func (l *matchLocks) lock(matchID uuid.UUID) (unlock func()) {
	l.all.RLock()
	v, _ := l.matches.LoadOrStore(matchID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return func() {
		mu.Unlock()
		l.all.RUnlock()
	}
}

func (l *matchLocks) lockAll() (unlock func()) {
	l.all.Lock()
	return l.all.Unlock
}

func (l *matchLocks) size() int {
	n := 0
	l.matches.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// lockExisting takes the in-process lock for a match once it is known to exist.
// An unknown ID returns ErrNotFound without creating a mutex for it.
func (e *Engine) lockExisting(ctx context.Context, matchID uuid.UUID) (unlock func(), err error) {
	var n int64
	if err := e.db.WithContext(ctx).Model(&models.Match{}).Where("id = ?", matchID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to look up match: %w", err)
	}
	if n == 0 {
		return nil, notFound("match", matchID)
	}
	return e.locks.lock(matchID), nil
}

// publish sends updates after their transaction committed. A failure here is logged and
// swallowed: the write already happened and subscribers can re-read the match.
func (e *Engine) publish(ctx context.Context, updates ...events.MatchUpdate) {
	for _, u := range updates {
		if err := e.publisher.Publish(ctx, u); err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"match_id": u.MatchID,
				"status":   u.Status,
			}).Warn("Failed to publish match update")
		}
	}
}

// findByID loads one row into dest or returns a wrapped ErrNotFound.
// Find with Limit(1) instead of First keeps GORM from logging "record not found".
func findByID(tx *gorm.DB, dest any, what string, id uuid.UUID) error {
	res := tx.Where("id = ?", id).Limit(1).Find(dest)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(what, id)
	}
	return nil
}

// lockMatch loads the match with SELECT ... FOR UPDATE.
func lockMatch(tx *gorm.DB, matchID uuid.UUID) (*models.Match, error) {
	var m models.Match
	if err := findByID(tx.Clauses(clause.Locking{Strength: "UPDATE"}), &m, "match", matchID); err != nil {
		return nil, err
	}
	return &m, nil
}

func validateHole(hole int) error {
	if hole < 1 || hole > models.HolesPerRound {
		return &ValidationError{Field: "holeNumber", Reason: "must be between 1 and 18"}
	}
	return nil
}
