package wallet

import (
	"crypto/ed25519"
	"fmt"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	bip39 "github.com/tyler-smith/go-bip39"
)

// Wallet is the local signing collaborator. It satisfies the engine's
// Signer interface; the engine itself never sees key material.
type Wallet struct {
	account types.Account
	priv    solana.PrivateKey
	pub     solana.PublicKey
	logger  *logrus.Logger
}

// NewFromPrivateKey creates a wallet from a base58 private key
func NewFromPrivateKey(privateKey string, logger *logrus.Logger) (*Wallet, error) {
	if privateKey == "" {
		return nil, fmt.Errorf("private key is required")
	}

	account, err := types.AccountFromBase58(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return newFromAccount(account, logger)
}

// NewFromMnemonic creates a wallet from a BIP39 mnemonic. Solana derives the
// ed25519 keypair from the first 32 bytes of the BIP39 seed.
func NewFromMnemonic(mnemonic, passphrase string, logger *logrus.Logger) (*Wallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, passphrase)
	key := ed25519.NewKeyFromSeed(seed[:32])

	account, err := types.AccountFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build account from seed: %w", err)
	}
	return newFromAccount(account, logger)
}

func newFromAccount(account types.Account, logger *logrus.Logger) (*Wallet, error) {
	priv := solana.PrivateKey(account.PrivateKey)
	pub := solana.PublicKeyFromBytes(account.PublicKey.Bytes())

	wallet := &Wallet{
		account: account,
		priv:    priv,
		pub:     pub,
		logger:  logger,
	}

	logger.WithField("public_key", pub.String()).Info("Wallet initialized")
	return wallet, nil
}

// PublicKey returns the wallet's public key
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.pub
}

// PublicKeyString returns the wallet's public key as base58
func (w *Wallet) PublicKeyString() string {
	return w.pub.String()
}

// Sign signs a transaction with the wallet's key
func (w *Wallet) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if w.pub.Equals(key) {
			return &w.priv
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
