package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rent-reclaim-go/internal/client"
	"rent-reclaim-go/internal/config"
	"rent-reclaim-go/internal/logger"
	"rent-reclaim-go/internal/metadata"
	"rent-reclaim-go/internal/reclaim"
	"rent-reclaim-go/internal/retry"
	"rent-reclaim-go/internal/wallet"
	"rent-reclaim-go/pkg/utils"
)

const Version = "1.0.0"

// CLI flags
var (
	ownerFlag   = flag.String("owner", "", "Wallet address to scan (defaults to the configured wallet)")
	scanOnly    = flag.Bool("scan-only", false, "Scan and print closable accounts without paying or closing")
	payAll      = flag.Bool("pay-all", false, "Pay the claim fee for the whole result set")
	closeAll    = flag.Bool("close-all", false, "Close all closable accounts (requires the fee gate)")
	closeOne    = flag.String("close", "", "Close a single account by address (requires its fee gate)")
	waitMetaSec = flag.Int("wait-meta", 3, "Seconds to wait for metadata enrichment before printing")
	network     = flag.String("network", "", "Network to use (mainnet/devnet)")
	logLevel    = flag.String("log-level", "", "Log level (debug/info/warn/error)")
	dryRun      = flag.Bool("dry-run", false, "Build and sign transactions without sending")
	configFile  = flag.String("config", "", "Path to config file")
	envFile     = flag.String("env", "", "Path to .env file")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg)

	log, err := logger.NewLogger(logger.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		LogToFile:   cfg.Logging.LogToFile,
		LogFilePath: cfg.Logging.LogFilePath,
		ClaimLogDir: cfg.Logging.ClaimLogDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithField("version", Version).Info("♻️ Rent reclaim starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Warn("Interrupted, abandoning in-flight work")
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(reclaim.UserMessage(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	rpcClient := client.NewClient(client.ClientConfig{
		RPCEndpoint: cfg.RPCUrl,
		APIKey:      cfg.RPCAPIKey,
	}, log.Logger)

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
		MaxJitter:   time.Duration(cfg.Retry.MaxJitterMs) * time.Millisecond,
		Retryable:   retry.IsRateLimit,
	}
	scanner := reclaim.NewScanner(rpcClient, policy, log.Logger)

	cache, err := metadata.NewCache(cfg.Metadata.CacheSize)
	if err != nil {
		return fmt.Errorf("failed to create metadata cache: %w", err)
	}
	enricher := metadata.NewEnricher(rpcClient, cache, metadata.Config{
		TokenListSources: cfg.Metadata.TokenListSources,
		FetchTimeout:     time.Duration(cfg.Metadata.FetchTimeoutMs) * time.Millisecond,
	}, log.Logger)

	tracker := reclaim.NewTracker(
		rpcClient,
		time.Duration(cfg.Confirm.PollIntervalMs)*time.Millisecond,
		time.Duration(cfg.Confirm.TimeoutSec)*time.Second,
		log.Logger,
	)
	if cfg.Confirm.UseWebsocket && cfg.WSUrl != "" {
		tracker.WithSubscriber(client.NewWSClient(cfg.WSUrl, log.Logger))
	}

	fees := reclaim.NewFeeLedger(cfg.Fee.BasisPoints, cfg.FeeTreasury())

	var (
		signer     reclaim.Signer
		transactor *reclaim.Transactor
		engine     *reclaim.Engine
	)
	w, err := loadWallet(cfg, log)
	if err != nil {
		return err
	}
	if w != nil {
		signer = w
		transactor = reclaim.NewTransactor(rpcClient, tracker, signer, cfg.Settle.DryRun, log.Logger)
		engine = reclaim.NewEngine(transactor, cfg.Settle.BatchSize, log.Logger)
	}

	session := reclaim.NewSession(scanner, enricher, fees, engine, transactor, signer, log.Logger)
	defer session.Close()

	if cfg.Logging.ClaimLogDir != "" {
		claims, err := logger.NewClaimLogger(cfg.Logging.ClaimLogDir, log)
		if err != nil {
			return err
		}
		session.SetClaimRecorder(claims)
	}

	owner := *ownerFlag
	if owner == "" {
		if w == nil {
			return fmt.Errorf("no owner address: pass -owner or configure a wallet")
		}
		owner = w.PublicKeyString()
	}

	if _, err := session.Scan(ctx, owner); err != nil {
		return err
	}

	// Give background enrichment a moment before printing the table
	if *waitMetaSec > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(*waitMetaSec) * time.Second):
		}
	}
	printResult(session)

	if *scanOnly {
		return nil
	}

	if *payAll {
		if err := session.PayFeeAll(ctx); err != nil {
			return err
		}
	}
	if *closeOne != "" {
		if err := session.CloseOne(ctx, *closeOne); err != nil {
			return err
		}
	}
	if *closeAll {
		if err := session.CloseAll(ctx); err != nil {
			return err
		}
	}

	if *payAll || *closeAll || *closeOne != "" {
		printResult(session)
	}
	return nil
}

// loadWallet builds the signer from config; nil means a read-only session
func loadWallet(cfg *config.Config, log *logger.Logger) (*wallet.Wallet, error) {
	switch {
	case cfg.PrivateKey != "":
		return wallet.NewFromPrivateKey(cfg.PrivateKey, log.Logger)
	case cfg.Mnemonic != "":
		return wallet.NewFromMnemonic(cfg.Mnemonic, "", log.Logger)
	default:
		log.Info("No wallet configured, running read-only")
		return nil, nil
	}
}

func printResult(session *reclaim.Session) {
	result := session.Snapshot()
	if result == nil {
		return
	}

	fmt.Printf("\nScanned: %s\n", result.Owner)
	fmt.Printf("Accounts to close: %d\n", result.Count)
	fmt.Printf("Total claimable:   %s SOL\n", utils.FormatSOL(result.TotalReclaimableSOL))
	fmt.Printf("Claim fee:         %s SOL\n\n", utils.FormatSOL(utils.ConvertLamportsToSOL(session.RequiredFeeLamports())))

	if result.Count == 0 {
		fmt.Println("No closable accounts.")
		return
	}

	fmt.Printf("%-14s %-24s %-12s %s\n", "ACCOUNT", "TOKEN", "MINT", "RECLAIMABLE (SOL)")
	for _, row := range result.Rows {
		name := utils.ShortAddressN(row.MintAddress, 5)
		if row.Meta != nil && row.Meta.Name != "" {
			name = row.Meta.Name
			if row.Meta.Symbol != "" {
				name += " · " + row.Meta.Symbol
			}
		}
		fmt.Printf("%-14s %-24s %-12s %s\n",
			utils.ShortAddress(row.AccountAddress),
			name,
			utils.ShortAddress(row.MintAddress),
			utils.FormatSOL(row.ReclaimableSOL),
		)
	}
	if session.MetaWarned() {
		fmt.Println("\nToken logos/names unavailable right now.")
	}
}

func applyFlagOverrides(cfg *config.Config) {
	if *network != "" {
		cfg.Network = *network
		if *network == "devnet" {
			if cfg.RPCUrl == config.SolanaMainnetRPC {
				cfg.RPCUrl = config.SolanaDevnetRPC
			}
			if cfg.WSUrl == config.SolanaMainnetWS {
				cfg.WSUrl = config.SolanaDevnetWS
			}
		}
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *dryRun {
		cfg.Settle.DryRun = true
	}
}
