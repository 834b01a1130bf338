// Package metadata implements best-effort display metadata resolution for
// mints: an on-chain Metaplex lookup first, with external token lists as
// fallback. Failures for individual mints are swallowed; rows simply keep
// their placeholder display.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"rent-reclaim-go/internal/config"
	"rent-reclaim-go/internal/reclaim"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// AccountReader fetches raw on-chain account data
type AccountReader interface {
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// Enricher resolves metadata for mints in two tiers
type Enricher struct {
	chain        AccountReader
	cache        *Cache
	httpClient   *http.Client
	sources      []string
	fetchTimeout time.Duration
	logger       *logrus.Logger
}

// Config contains enricher settings
type Config struct {
	TokenListSources []string
	FetchTimeout     time.Duration
}

// NewEnricher creates an enrichment pipeline backed by the given cache
func NewEnricher(chain AccountReader, cache *Cache, cfg Config, logger *logrus.Logger) *Enricher {
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = time.Duration(config.DefaultMetaFetchTimeoutMs) * time.Millisecond
	}
	if len(cfg.TokenListSources) == 0 {
		cfg.TokenListSources = config.DefaultTokenListSources
	}

	return &Enricher{
		chain:        chain,
		cache:        cache,
		httpClient:   &http.Client{Timeout: cfg.FetchTimeout},
		sources:      cfg.TokenListSources,
		fetchTimeout: cfg.FetchTimeout,
		logger:       logger,
	}
}

// Enrich resolves metadata for the given mints, invoking apply for each
// resolved mint as soon as it resolves. Mints are attempted concurrently but
// tier-ordered per mint: on-chain first, token lists only for what remains.
// The returned error marks a broad failure of the pass (all fallback sources
// down while unresolved mints remained); per-mint failures are not reported.
func (e *Enricher) Enrich(ctx context.Context, mints []string, apply func(reclaim.MetaPatch)) error {
	var (
		mu         sync.Mutex
		unresolved []string
		wg         sync.WaitGroup
	)

	for _, mint := range mints {
		if meta, ok := e.cache.Mint(mint); ok {
			apply(reclaim.MetaPatch{Mint: mint, Meta: meta})
			continue
		}

		mint := mint
		wg.Add(1)
		go func() {
			defer wg.Done()
			meta, ok := e.resolveOnChain(ctx, mint)
			if ok {
				e.cache.PutMint(mint, meta)
				apply(reclaim.MetaPatch{Mint: mint, Meta: meta})
				return
			}
			mu.Lock()
			unresolved = append(unresolved, mint)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(unresolved) == 0 {
		return nil
	}

	list, err := e.tokenList(ctx)
	if err != nil {
		e.logger.WithError(err).WithField("unresolved", len(unresolved)).
			Warn("All token list sources failed")
		return fmt.Errorf("metadata enrichment failed broadly: %w", err)
	}

	for _, mint := range unresolved {
		if meta, ok := list[mint]; ok {
			e.cache.PutMint(mint, meta)
			apply(reclaim.MetaPatch{Mint: mint, Meta: meta})
		}
	}
	return nil
}

// resolveOnChain reads the mint's Metaplex metadata account and, when a URI
// is present, fetches it to extract a logo image.
func (e *Enricher) resolveOnChain(ctx context.Context, mint string) (reclaim.TokenMeta, bool) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return reclaim.TokenMeta{}, false
	}
	pda, err := MetadataPDA(mintKey)
	if err != nil {
		return reclaim.TokenMeta{}, false
	}

	data, err := e.chain.AccountData(ctx, pda)
	if err != nil || data == nil {
		return reclaim.TokenMeta{}, false
	}

	name, symbol, uri, err := decodeMetadata(data)
	if err != nil {
		e.logger.WithError(err).WithField("mint", mint).Debug("Undecodable metadata account")
		return reclaim.TokenMeta{}, false
	}

	meta := reclaim.TokenMeta{Name: name, Symbol: symbol}
	if uri != "" {
		// Logo is best-effort on top of best-effort
		if image := e.fetchImage(ctx, uri); image != "" {
			meta.LogoURI = image
		}
	}

	if meta.Name == "" && meta.Symbol == "" && meta.LogoURI == "" {
		return reclaim.TokenMeta{}, false
	}
	return meta, true
}

// fetchImage fetches the off-chain metadata JSON and extracts its image
// field, normalizing ipfs:// URIs to an HTTP gateway.
func (e *Enricher) fetchImage(ctx context.Context, uri string) string {
	var doc struct {
		Image string `json:"image"`
	}
	if err := e.fetchJSON(ctx, uri, &doc); err != nil {
		return ""
	}
	return NormalizeContentURI(doc.Image)
}

// tokenList returns the process-wide token list, downloading it from the
// configured sources in priority order on first use. The first source that
// responds successfully wins; its list is cached for the process lifetime.
func (e *Enricher) tokenList(ctx context.Context) (map[string]reclaim.TokenMeta, error) {
	if list := e.cache.TokenList(); list != nil {
		return list, nil
	}

	var lastErr error
	for _, source := range e.sources {
		list, err := e.fetchTokenList(ctx, source)
		if err != nil {
			lastErr = err
			e.logger.WithError(err).WithField("source", source).Debug("Token list source failed, trying next")
			continue
		}

		e.cache.SetTokenList(list)
		e.logger.WithFields(logrus.Fields{
			"source": source,
			"tokens": len(list),
		}).Info("Token list cached")
		return list, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no token list sources configured")
	}
	return nil, lastErr
}

// tokenListEntry tolerates the field spellings used across the known sources
type tokenListEntry struct {
	Address     string `json:"address"`
	MintAddress string `json:"mintAddress"`
	Mint        string `json:"mint"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	LogoURI     string `json:"logoURI"`
	Logo        string `json:"logo"`
}

func (t tokenListEntry) addr() string {
	switch {
	case t.Address != "":
		return t.Address
	case t.MintAddress != "":
		return t.MintAddress
	default:
		return t.Mint
	}
}

func (t tokenListEntry) logoURI() string {
	if t.LogoURI != "" {
		return t.LogoURI
	}
	return t.Logo
}

func (e *Enricher) fetchTokenList(ctx context.Context, source string) (map[string]reclaim.TokenMeta, error) {
	var raw json.RawMessage
	if err := e.fetchJSON(ctx, source, &raw); err != nil {
		return nil, err
	}

	// Sources disagree on shape: either a bare array or {"tokens": [...]}
	var entries []tokenListEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			Tokens []tokenListEntry `json:"tokens"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("unrecognized token list shape from %s: %w", source, err)
		}
		entries = wrapped.Tokens
	}

	list := make(map[string]reclaim.TokenMeta, len(entries))
	for _, entry := range entries {
		addr := entry.addr()
		if addr == "" {
			continue
		}
		list[addr] = reclaim.TokenMeta{
			Name:    entry.Name,
			Symbol:  entry.Symbol,
			LogoURI: entry.logoURI(),
		}
	}
	return list, nil
}

func (e *Enricher) fetchJSON(ctx context.Context, url string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// NormalizeContentURI rewrites content-addressed storage URIs to an HTTP
// gateway URL; plain HTTP(S) URIs pass through unchanged.
func NormalizeContentURI(uri string) string {
	if strings.HasPrefix(uri, "ipfs://") {
		return config.IPFSGateway + strings.TrimPrefix(uri, "ipfs://")
	}
	return uri
}
