package reclaim

import (
	"context"
	"errors"
	"testing"
	"time"

	"rent-reclaim-go/internal/client"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusScript returns one scripted status per poll, repeating the last entry
type statusScript struct {
	seq  []*client.SignatureStatus
	errs []error
	call int
}

func (s *statusScript) SignatureStatus(ctx context.Context, signature solana.Signature) (*client.SignatureStatus, error) {
	i := s.call
	s.call++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.seq) {
		i = len(s.seq) - 1
	}
	return s.seq[i], nil
}

func TestTracker_ConfirmsAfterPending(t *testing.T) {
	script := &statusScript{seq: []*client.SignatureStatus{
		{Found: false},
		{Found: true, Confirmed: false},
		{Found: true, Confirmed: true},
	}}
	tracker := NewTracker(script, time.Millisecond, time.Second, testLogger())

	err := tracker.Await(context.Background(), solana.Signature{1})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, script.call, 3)
}

func TestTracker_RemoteErrorIsFailure(t *testing.T) {
	script := &statusScript{seq: []*client.SignatureStatus{
		{Found: true, Err: map[string]interface{}{"InstructionError": []interface{}{0.0, "Custom"}}},
	}}
	tracker := NewTracker(script, time.Millisecond, time.Second, testLogger())

	sig := solana.Signature{2}
	err := tracker.Await(context.Background(), sig)

	var failed *TransactionFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, sig.String(), failed.Signature)
}

func TestTracker_BudgetElapsesToTimeout(t *testing.T) {
	script := &statusScript{seq: []*client.SignatureStatus{{Found: false}}}
	tracker := NewTracker(script, time.Millisecond, 20*time.Millisecond, testLogger())

	err := tracker.Await(context.Background(), solana.Signature{3})

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTracker_StatusReadErrorsKeepPolling(t *testing.T) {
	script := &statusScript{
		seq: []*client.SignatureStatus{
			{Found: false},
			{Found: false},
			{Found: true, Confirmed: true},
		},
		errs: []error{errors.New("503"), errors.New("503")},
	}
	tracker := NewTracker(script, time.Millisecond, time.Second, testLogger())

	err := tracker.Await(context.Background(), solana.Signature{4})

	require.NoError(t, err)
}

func TestTracker_CallerCancellation(t *testing.T) {
	script := &statusScript{seq: []*client.SignatureStatus{{Found: false}}}
	tracker := NewTracker(script, time.Millisecond, time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := tracker.Await(ctx, solana.Signature{5})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

// scriptedSubscriber resolves with a fixed outcome
type scriptedSubscriber struct {
	txErr interface{}
	err   error
}

func (s scriptedSubscriber) AwaitSignature(ctx context.Context, signature solana.Signature) (interface{}, error) {
	return s.txErr, s.err
}

func TestTracker_SubscriptionSuccess(t *testing.T) {
	tracker := NewTracker(nil, time.Millisecond, time.Second, testLogger()).
		WithSubscriber(scriptedSubscriber{})

	err := tracker.Await(context.Background(), solana.Signature{6})

	require.NoError(t, err)
}

func TestTracker_SubscriptionTxError(t *testing.T) {
	tracker := NewTracker(nil, time.Millisecond, time.Second, testLogger()).
		WithSubscriber(scriptedSubscriber{txErr: "InstructionError"})

	err := tracker.Await(context.Background(), solana.Signature{7})

	var failed *TransactionFailedError
	assert.ErrorAs(t, err, &failed)
}
