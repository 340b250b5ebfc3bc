package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// ErrTransactionFailed is returned when a mined transaction's receipt reports a status other than 1
var ErrTransactionFailed = errors.New("transaction failed")

// DefaultPollInterval is the delay between inclusion checks for a pending transaction
const DefaultPollInterval = 1 * time.Second

// TransactionReader is the subset of the RPC client the tracker polls.
// *ethclient.Client and *ContractCaller satisfy it.
type TransactionReader interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// ConfirmationCallback receives the final status of a tracked transaction
type ConfirmationCallback func(success bool)

// ConfirmationTracker polls transactions until they are mined and notifies
// every waiter registered for the hash. At most one poller runs per hash.
type ConfirmationTracker struct {
	reader   TransactionReader
	interval time.Duration
	logger   logrus.FieldLogger

	mu      sync.Mutex
	pending map[common.Hash]*pendingTx
	nextID  uint64
	closed  bool
	wg      sync.WaitGroup
}

type pendingTx struct {
	waiters []waiter
	cancel  context.CancelFunc
}

type waiter struct {
	id       uint64
	callback ConfirmationCallback
}

// TrackerOption configures a ConfirmationTracker
type TrackerOption func(*ConfirmationTracker)

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(interval time.Duration) TrackerOption {
	return func(t *ConfirmationTracker) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

// WithTrackerLogger sets the logger used for poll warnings
func WithTrackerLogger(logger logrus.FieldLogger) TrackerOption {
	return func(t *ConfirmationTracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewConfirmationTracker creates a tracker polling through reader
func NewConfirmationTracker(reader TransactionReader, opts ...TrackerOption) *ConfirmationTracker {
	t := &ConfirmationTracker{
		reader:   reader,
		interval: DefaultPollInterval,
		logger:   logrus.StandardLogger(),
		pending:  make(map[common.Hash]*pendingTx),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.WithField("module", "confirmation-tracker")
	return t
}

// Register adds callback to the waiters for txHash, starting a poller if
// the hash is not tracked yet. The returned function removes the waiter;
// when the last waiter leaves the poller stops.
func (t *ConfirmationTracker) Register(txHash common.Hash, callback ConfirmationCallback) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return func() {}
	}

	t.nextID++
	id := t.nextID

	if entry, ok := t.pending[txHash]; ok {
		entry.waiters = append(entry.waiters, waiter{id: id, callback: callback})
		return func() { t.unregister(txHash, id) }
	}

	ctx, stop := context.WithCancel(context.Background())
	entry := &pendingTx{
		waiters: []waiter{{id: id, callback: callback}},
		cancel:  stop,
	}
	t.pending[txHash] = entry

	t.wg.Add(1)
	go t.poll(ctx, txHash, entry)

	return func() { t.unregister(txHash, id) }
}

func (t *ConfirmationTracker) unregister(txHash common.Hash, id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.pending[txHash]
	if !ok {
		return
	}

	for i, w := range entry.waiters {
		if w.id == id {
			entry.waiters = append(entry.waiters[:i], entry.waiters[i+1:]...)
			break
		}
	}

	if len(entry.waiters) == 0 {
		entry.cancel()
		delete(t.pending, txHash)
	}
}

// ConfirmTransaction blocks until txHash is mined. It returns nil on
// success, ErrTransactionFailed when the receipt status is not 1, or
// ctx.Err() if ctx ends first.
func (t *ConfirmationTracker) ConfirmTransaction(ctx context.Context, txHash common.Hash) error {
	done := make(chan bool, 1)
	cancel := t.Register(txHash, func(success bool) {
		done <- success
	})

	select {
	case success := <-done:
		if !success {
			return fmt.Errorf("%w: tx hash %s", ErrTransactionFailed, txHash.Hex())
		}
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// IsTracking reports whether a poller is running for txHash
func (t *ConfirmationTracker) IsTracking(txHash common.Hash) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[txHash]
	return ok
}

// Close stops every poller. Pending waiters are not notified.
func (t *ConfirmationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	for hash, entry := range t.pending {
		entry.cancel()
		delete(t.pending, hash)
	}
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *ConfirmationTracker) poll(ctx context.Context, txHash common.Hash, entry *pendingTx) {
	defer t.wg.Done()

	logger := t.logger.WithField("tx_hash", txHash.Hex())
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		success, mined := t.checkInclusion(ctx, logger, txHash)
		if mined {
			t.resolve(txHash, entry, success)
			return
		}

		timer.Reset(t.interval)
	}
}

// checkInclusion performs one poll attempt. RPC errors are treated as
// transient and reported as not mined.
func (t *ConfirmationTracker) checkInclusion(ctx context.Context, logger logrus.FieldLogger, txHash common.Hash) (success, mined bool) {
	tx, isPending, err := t.reader.TransactionByHash(ctx, txHash)
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
			logger.WithError(err).Warn("failed to fetch transaction, retrying")
		}
		return false, false
	}
	if tx == nil || isPending {
		return false, false
	}

	receipt, err := t.reader.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			logger.Warn("no receipt found for mined transaction, assuming success")
			return true, true
		}
		if ctx.Err() == nil {
			logger.WithError(err).Warn("failed to fetch receipt, retrying")
		}
		return false, false
	}
	if receipt == nil {
		logger.Warn("no receipt found for mined transaction, assuming success")
		return true, true
	}

	return receipt.Status == types.ReceiptStatusSuccessful, true
}

// resolve removes entry from the map and notifies its waiters in
// registration order. An entry that was already cancelled or replaced by a
// newer poll for the same hash is left alone.
func (t *ConfirmationTracker) resolve(txHash common.Hash, entry *pendingTx, success bool) {
	t.mu.Lock()
	current, ok := t.pending[txHash]
	if !ok || current != entry {
		t.mu.Unlock()
		return
	}
	delete(t.pending, txHash)
	t.mu.Unlock()

	entry.cancel()

	for _, w := range entry.waiters {
		w.callback(success)
	}
}
