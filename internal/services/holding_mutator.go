package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	apperrors "cryptoforge/internal/errors"
	"cryptoforge/internal/locks"
	"cryptoforge/internal/logger"
	"cryptoforge/internal/models"
	"cryptoforge/internal/storage"
	"cryptoforge/internal/uuid"
)

// MutationState is the lifecycle position of a single mutation request.
type MutationState int32

const (
	// MutationPending: accepted, waiting for a worker and the account lock.
	MutationPending MutationState = iota
	// MutationLockAcquired: the account lock is held, the aggregate is being
	// reloaded and validated.
	MutationLockAcquired
	// MutationValidated: the holding exists and the new quantity is legal;
	// the write is in flight.
	MutationValidated
	// MutationCommitted: terminal success.
	MutationCommitted
	// MutationRejected: terminal; input validation failed before the lock was
	// ever acquired and no state was touched.
	MutationRejected
	// MutationFailed: terminal; the account or asset was missing, or the
	// adjustment was illegal. The lock has been released and nothing was
	// written.
	MutationFailed
)

// String returns the state name for logging.
func (s MutationState) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationLockAcquired:
		return "lock_acquired"
	case MutationValidated:
		return "validated"
	case MutationCommitted:
		return "committed"
	case MutationRejected:
		return "rejected"
	case MutationFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Completion is the handle returned immediately by AdjustQuantity. It
// resolves once with either success or the failure that stopped the
// mutation. Abandoning a Completion does not affect the mutation's outcome.
type Completion struct {
	id    string
	state atomic.Int32
	err   error
	done  chan struct{}
}

func newCompletion() *Completion {
	return &Completion{
		id:   uuid.New(),
		done: make(chan struct{}),
	}
}

// ID returns the mutation request identifier, usable for log correlation.
func (c *Completion) ID() string { return c.id }

// Done returns a channel closed when the mutation has reached a terminal
// state.
func (c *Completion) Done() <-chan struct{} { return c.done }

// State returns the mutation's current lifecycle state.
func (c *Completion) State() MutationState {
	return MutationState(c.state.Load())
}

// Err returns the terminal error, or nil if the mutation committed or has
// not finished yet. Only meaningful after Done is closed.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the mutation resolves or ctx is cancelled. Cancelling the
// wait does not cancel the mutation: once the lock is acquired the mutation
// runs to commit or failure.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// advance moves through non-terminal states.
func (c *Completion) advance(s MutationState) {
	c.state.Store(int32(s))
}

// resolve sets the terminal state and error, then releases waiters. The err
// write happens before close(done), so readers that observe the closed
// channel also observe err.
func (c *Completion) resolve(s MutationState, err error) {
	c.err = err
	c.state.Store(int32(s))
	close(c.done)
}

// mutationJob is one queued quantity adjustment.
type mutationJob struct {
	accountID  string
	asset      string
	delta      decimal.Decimal
	completion *Completion
}

// holdingMutator applies quantity adjustments on a fixed worker pool.
// Mutations for the same account serialize on an account-scoped exclusive
// lock held for the full reload-validate-write round trip; mutations for
// different accounts proceed in parallel. Lock acquisition order is the only
// ordering guarantee between mutations on one account.
type holdingMutator struct {
	repo      *storage.AccountRepository
	locks     *locks.KeyedMutex
	jobs      chan *mutationJob
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	// enqueueWG counts submissions that are still settling into the queue.
	// Close waits on it so no send can land after the final drain.
	enqueueWG sync.WaitGroup
}

const (
	defaultMutatorWorkers    = 4
	defaultMutatorQueueDepth = 64
)

// NewHoldingMutator creates a mutator and starts its worker pool.
// Non-positive workers or queueDepth fall back to defaults.
func NewHoldingMutator(repo *storage.AccountRepository, workers, queueDepth int) HoldingMutatorServicer {
	if workers <= 0 {
		workers = defaultMutatorWorkers
	}
	if queueDepth <= 0 {
		queueDepth = defaultMutatorQueueDepth
	}

	m := &holdingMutator{
		repo:   repo,
		locks:  locks.NewKeyedMutex(),
		jobs:   make(chan *mutationJob, queueDepth),
		closed: make(chan struct{}),
	}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.run()
	}
	return m
}

// AdjustQuantity validates the request, then hands it to the worker pool and
// returns the completion handle without blocking. Validation failures
// resolve the handle immediately as Rejected; every other outcome, including
// a missing account or asset, surfaces only through the handle.
func (m *holdingMutator) AdjustQuantity(accountID, asset string, delta decimal.Decimal) *Completion {
	c := newCompletion()

	if strings.TrimSpace(accountID) == "" {
		c.resolve(MutationRejected, apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required"))
		return c
	}
	if strings.TrimSpace(asset) == "" {
		c.resolve(MutationRejected, apperrors.WithMessage(apperrors.ErrInvalidInput, "asset symbol is required"))
		return c
	}

	job := &mutationJob{
		accountID:  accountID,
		asset:      asset,
		delta:      delta,
		completion: c,
	}

	m.enqueueWG.Add(1)

	select {
	case <-m.closed:
		m.enqueueWG.Done()
		c.resolve(MutationRejected, apperrors.ErrMutatorClosed)
		return c
	default:
	}

	select {
	case m.jobs <- job:
		m.enqueueWG.Done()
	default:
		// Queue is full; finish the enqueue off the caller's goroutine so the
		// call stays non-blocking.
		go func() {
			defer m.enqueueWG.Done()
			select {
			case m.jobs <- job:
			case <-m.closed:
				c.resolve(MutationRejected, apperrors.ErrMutatorClosed)
			}
		}()
	}
	return c
}

// Close stops accepting new mutations, drains the queue, and waits for every
// accepted mutation to resolve. A send racing shutdown can still land after
// the workers exit, so Close finishes with its own drain once all pending
// enqueues have settled.
func (m *holdingMutator) Close() {
	m.closeOnce.Do(func() {
		close(m.closed)
	})
	m.enqueueWG.Wait()
	m.wg.Wait()
	for {
		select {
		case job := <-m.jobs:
			m.apply(job)
		default:
			return
		}
	}
}

func (m *holdingMutator) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.closed:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case job := <-m.jobs:
					m.apply(job)
				default:
					return
				}
			}
		case job := <-m.jobs:
			m.apply(job)
		}
	}
}

// apply runs one mutation inside the account-scoped critical section. The
// lock is held for the full duration, including the store round trip, and is
// released on commit or failure.
func (m *holdingMutator) apply(job *mutationJob) {
	log := logger.Get()

	m.locks.Lock(job.accountID)
	defer m.locks.Unlock(job.accountID)
	job.completion.advance(MutationLockAcquired)

	err := m.repo.Transaction(func(tx *storage.AccountRepository) error {
		account, err := tx.FindByID(job.accountID)
		if err != nil {
			return err
		}

		holding := findHolding(account, job.asset)
		if holding == nil {
			// A miss never inserts a holding for an unseeded asset.
			return apperrors.WithMessage(apperrors.ErrHoldingNotFound,
				"account does not hold "+job.asset)
		}

		newQuantity := holding.Quantity.Add(job.delta)
		if newQuantity.IsNegative() {
			return apperrors.ErrInsufficientBalance
		}
		job.completion.advance(MutationValidated)

		return tx.UpdateHoldingQuantity(holding, newQuantity)
	})
	if err != nil {
		log.Warnw("holding mutation failed",
			"mutation_id", job.completion.ID(),
			"account_id", job.accountID,
			"asset", job.asset,
			"error", err,
		)
		job.completion.resolve(MutationFailed, err)
		return
	}

	log.Infow("holding mutation committed",
		"mutation_id", job.completion.ID(),
		"account_id", job.accountID,
		"asset", job.asset,
		"delta", job.delta.String(),
	)
	job.completion.resolve(MutationCommitted, nil)
}

func findHolding(account *models.Account, asset string) *models.Holding {
	if account.Portfolio == nil {
		return nil
	}
	return account.Portfolio.HoldingFor(asset)
}
