package reclaim

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync"

	"rent-reclaim-go/internal/client"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// tokenAccountData builds a raw SPL token account buffer with the given mint
// and little-endian u64 balance at the layout offsets.
func tokenAccountData(mint solana.PublicKey, balance uint64) []byte {
	data := make([]byte, 165)
	copy(data[0:32], mint.Bytes())
	binary.LittleEndian.PutUint64(data[64:72], balance)
	return data
}

func randomKey() solana.PublicKey {
	var b [32]byte
	rand.Read(b[:])
	return solana.PublicKeyFromBytes(b[:])
}

// fakeChain implements TokenAccountReader, TxChain and StatusReader
type fakeChain struct {
	mu sync.Mutex

	accounts    []client.TokenAccount
	accountsErr []error // consumed one per call before accounts are returned

	blockhashes int
	sends       int
	sentTxs     []*solana.Transaction
	failSendAt  map[int]error // 1-based send index -> error

	statuses map[string]*client.SignatureStatus
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		failSendAt: make(map[int]error),
		statuses:   make(map[string]*client.SignatureStatus),
	}
}

func (f *fakeChain) TokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, program solana.PublicKey) ([]client.TokenAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.accountsErr) > 0 {
		err := f.accountsErr[0]
		f.accountsErr = f.accountsErr[1:]
		return nil, err
	}
	return f.accounts, nil
}

func (f *fakeChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockhashes++
	var h solana.Hash
	h[0] = byte(f.blockhashes)
	return h, nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if err, ok := f.failSendAt[f.sends]; ok {
		return solana.Signature{}, err
	}
	f.sentTxs = append(f.sentTxs, tx)
	var sig solana.Signature
	sig[0] = byte(f.sends)
	return sig, nil
}

func (f *fakeChain) SignatureStatus(ctx context.Context, signature solana.Signature) (*client.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.statuses[signature.String()]; ok {
		return status, nil
	}
	return &client.SignatureStatus{Found: true, Confirmed: true}, nil
}

// okWaiter confirms every signature immediately
type okWaiter struct{}

func (okWaiter) Await(ctx context.Context, signature solana.Signature) error { return nil }

// testSigner signs with a throwaway key
type testSigner struct {
	priv solana.PrivateKey
}

func newTestSigner() *testSigner {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		panic(err)
	}
	return &testSigner{priv: priv}
}

func (s *testSigner) PublicKey() solana.PublicKey { return s.priv.PublicKey() }

func (s *testSigner) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if s.priv.PublicKey().Equals(key) {
			return &s.priv
		}
		return nil
	})
	return err
}

// recordingEnricher captures apply callbacks so tests can resolve patches at
// a time of their choosing
type recordingEnricher struct {
	mu      sync.Mutex
	mints   []string
	applies []func(MetaPatch)
	err     error
}

func (r *recordingEnricher) Enrich(ctx context.Context, mints []string, apply func(MetaPatch)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mints = append(r.mints, mints...)
	r.applies = append(r.applies, apply)
	return r.err
}

func (r *recordingEnricher) lastApply() func(MetaPatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.applies) == 0 {
		return nil
	}
	return r.applies[len(r.applies)-1]
}
