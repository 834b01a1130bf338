package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ClaimLog represents one settled claim entry
type ClaimLog struct {
	Timestamp         time.Time `json:"timestamp"`
	Owner             string    `json:"owner"`              // Scanned wallet address
	Signature         string    `json:"signature"`          // Settlement transaction signature
	Accounts          []string  `json:"accounts"`           // Closed token account addresses
	ReclaimedLamports uint64    `json:"reclaimed_lamports"` // Rent refunded by this transaction
	ReclaimedSOL      float64   `json:"reclaimed_sol"`
	Status            string    `json:"status"` // "success" or "failed"
	ErrorMessage      string    `json:"error_message,omitempty"`
}

// ClaimLogger appends settled claim batches to daily JSONL files
type ClaimLogger struct {
	baseDir string
	logger  *Logger
}

// NewClaimLogger creates a new claim logger
func NewClaimLogger(baseDir string, logger *Logger) (*ClaimLogger, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create claim log directory: %w", err)
	}

	return &ClaimLogger{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// LogClaim logs a settled batch to both structured logs and the claim file
func (cl *ClaimLogger) LogClaim(claim ClaimLog) error {
	if claim.Timestamp.IsZero() {
		claim.Timestamp = time.Now()
	}

	cl.logger.WithFields(map[string]interface{}{
		"event":              "claim_logged",
		"owner":              claim.Owner,
		"signature":          claim.Signature,
		"accounts":           len(claim.Accounts),
		"reclaimed_lamports": claim.ReclaimedLamports,
		"status":             claim.Status,
	}).Info("Claim logged")

	filename := fmt.Sprintf("claims_%s.jsonl", time.Now().Format("2006-01-02"))
	path := filepath.Join(cl.baseDir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open claim log file: %w", err)
	}
	defer file.Close()

	line, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("failed to marshal claim log: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write claim log: %w", err)
	}

	return nil
}
