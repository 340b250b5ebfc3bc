package chain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPollInterval = 10 * time.Millisecond

// fakeReader serves a single transaction that becomes mined once mined is set
type fakeReader struct {
	mined        atomic.Bool
	status       uint64
	noReceipt    bool
	failNext     atomic.Int32
	txCalls      atomic.Int32
	receiptCalls atomic.Int32
}

func newFakeReader(status uint64) *fakeReader {
	return &fakeReader{status: status}
}

func (r *fakeReader) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	r.txCalls.Add(1)
	if r.failNext.Load() > 0 {
		r.failNext.Add(-1)
		return nil, false, errors.New("connection refused")
	}
	if !r.mined.Load() {
		return nil, false, ethereum.NotFound
	}
	return types.NewTx(&types.LegacyTx{Nonce: 1}), false, nil
}

func (r *fakeReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	r.receiptCalls.Add(1)
	if r.noReceipt {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: r.status, TxHash: hash}, nil
}

func newTestTracker(reader TransactionReader) *ConfirmationTracker {
	return NewConfirmationTracker(reader, WithPollInterval(testPollInterval))
}

func TestTrackerDeduplicatesWaiters(t *testing.T) {
	reader := newFakeReader(types.ReceiptStatusSuccessful)
	tracker := newTestTracker(reader)
	defer tracker.Close()

	hash := common.HexToHash("0x01")

	var mu sync.Mutex
	var calls []string
	var wg sync.WaitGroup
	wg.Add(2)

	tracker.Register(hash, func(success bool) {
		mu.Lock()
		defer mu.Unlock()
		assert.True(t, success)
		calls = append(calls, "first")
		wg.Done()
	})
	tracker.Register(hash, func(success bool) {
		mu.Lock()
		defer mu.Unlock()
		assert.True(t, success)
		calls = append(calls, "second")
		wg.Done()
	})
	assert.True(t, tracker.IsTracking(hash))

	time.Sleep(3 * testPollInterval)
	reader.mined.Store(true)
	wg.Wait()

	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, int32(1), reader.receiptCalls.Load())
	assert.False(t, tracker.IsTracking(hash))
}

func TestTrackerReportsFailedStatus(t *testing.T) {
	reader := newFakeReader(types.ReceiptStatusFailed)
	reader.mined.Store(true)
	tracker := newTestTracker(reader)
	defer tracker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := tracker.ConfirmTransaction(ctx, common.HexToHash("0x02"))
	assert.ErrorIs(t, err, ErrTransactionFailed)
}

func TestTrackerMissingReceiptAssumesSuccess(t *testing.T) {
	reader := newFakeReader(types.ReceiptStatusFailed)
	reader.noReceipt = true
	reader.mined.Store(true)
	tracker := newTestTracker(reader)
	defer tracker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, tracker.ConfirmTransaction(ctx, common.HexToHash("0x03")))
}

func TestTrackerRetriesRPCErrors(t *testing.T) {
	reader := newFakeReader(types.ReceiptStatusSuccessful)
	reader.failNext.Store(3)
	reader.mined.Store(true)
	tracker := newTestTracker(reader)
	defer tracker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, tracker.ConfirmTransaction(ctx, common.HexToHash("0x04")))
	assert.GreaterOrEqual(t, reader.txCalls.Load(), int32(4))
}

func TestTrackerCancelStopsPolling(t *testing.T) {
	reader := newFakeReader(types.ReceiptStatusSuccessful)
	tracker := newTestTracker(reader)
	defer tracker.Close()

	hash := common.HexToHash("0x05")
	var called atomic.Bool
	cancel := tracker.Register(hash, func(bool) { called.Store(true) })

	time.Sleep(2 * testPollInterval)
	cancel()
	assert.False(t, tracker.IsTracking(hash))

	reader.mined.Store(true)
	time.Sleep(5 * testPollInterval)
	assert.False(t, called.Load())
}

func TestTrackerCancelKeepsOtherWaiters(t *testing.T) {
	reader := newFakeReader(types.ReceiptStatusSuccessful)
	tracker := newTestTracker(reader)
	defer tracker.Close()

	hash := common.HexToHash("0x06")
	var first atomic.Bool
	done := make(chan bool, 1)

	cancel := tracker.Register(hash, func(bool) { first.Store(true) })
	tracker.Register(hash, func(success bool) { done <- success })
	cancel()
	assert.True(t, tracker.IsTracking(hash))

	reader.mined.Store(true)
	select {
	case success := <-done:
		assert.True(t, success)
	case <-time.After(time.Second):
		t.Fatal("waiter was not notified")
	}
	assert.False(t, first.Load())
}

func TestConfirmTransactionContextCancelled(t *testing.T) {
	reader := newFakeReader(types.ReceiptStatusSuccessful)
	tracker := newTestTracker(reader)
	defer tracker.Close()

	hash := common.HexToHash("0x07")
	ctx, cancel := context.WithTimeout(context.Background(), 3*testPollInterval)
	defer cancel()

	err := tracker.ConfirmTransaction(ctx, hash)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, tracker.IsTracking(hash))
}

func TestTrackerRegisterAfterResolutionStartsNewPoll(t *testing.T) {
	reader := newFakeReader(types.ReceiptStatusSuccessful)
	reader.mined.Store(true)
	tracker := newTestTracker(reader)
	defer tracker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	hash := common.HexToHash("0x08")
	require.NoError(t, tracker.ConfirmTransaction(ctx, hash))
	require.NoError(t, tracker.ConfirmTransaction(ctx, hash))
	assert.Equal(t, int32(2), reader.receiptCalls.Load())
}

func TestTrackerClose(t *testing.T) {
	reader := newFakeReader(types.ReceiptStatusSuccessful)
	tracker := newTestTracker(reader)

	hash := common.HexToHash("0x09")
	tracker.Register(hash, func(bool) {})
	tracker.Close()

	assert.False(t, tracker.IsTracking(hash))

	// Registering on a closed tracker is a no-op.
	cancel := tracker.Register(hash, func(bool) {})
	cancel()
	assert.False(t, tracker.IsTracking(hash))
}
