// The bridge server hosts one ledger's cross-chain verification endpoint:
// the pull protocol over an HTTP transport, the push proof surface, and
// the owner-gated admin operations. State is in-memory and authoritative
// for the run; an optional Postgres archive keeps trust entries, resolved
// results and verified proofs durable.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bajpainaman/avax-eip8004-sdk/pkg/crosschain"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/db"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/notify"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/proof"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/registry"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/reputation"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/types"
	"github.com/bajpainaman/avax-eip8004-sdk/pkg/validation"
	"github.com/bajpainaman/avax-eip8004-sdk/services/bridge/internal/store"
	"github.com/bajpainaman/avax-eip8004-sdk/services/bridge/internal/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bridge server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_DEBUG") == "1" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Ledger state. In-memory and authoritative for this run.
	agents := registry.NewLedger()
	feedback := reputation.NewLedger()
	validations := validation.NewStore()

	var sinks notify.Multi
	sinks = append(sinks, notify.LogSink{})
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.WebhookURL, cfg.WebhookSecret))
	}

	sender := transport.NewHTTPSender(cfg.Chain, cfg.SelfAddress, cfg.TransportToken)
	for chain, url := range cfg.Routes {
		sender.SetRoute(chain, url)
	}

	endpoint := crosschain.New(crosschain.Config{
		Chain:     cfg.Chain,
		Owner:     cfg.Owner,
		Transport: cfg.TransportAddress,
		Sender:    sender,
		Registry:  agents,
		Feedback:  feedback,
		Events:    sinks,
	})

	signer := proof.NewLocalSigner(cfg.Chain, cfg.SelfAddress, cfg.SignerKey)
	emitter := proof.NewEmitter(proof.EmitterConfig{
		Chain:    cfg.Chain,
		Registry: agents,
		Feedback: feedback,
		Requests: validations,
		Signer:   signer,
		Events:   sinks,
	})
	verifier := proof.NewVerifier(proof.VerifierConfig{
		SourceChain:  cfg.TrustedSourceChain,
		OriginSender: cfg.TrustedOriginSender,
		Extractor:    &proof.LocalExtractor{},
		Events:       sinks,
	})

	var archive *store.Store
	if os.Getenv("DATABASE_URL") != "" {
		pool, err := db.Connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		archive = store.New(pool)
		if err := archive.EnsureSchema(ctx); err != nil {
			return err
		}
		// Re-install persisted trust entries before serving.
		entries, err := archive.ListTrustEntries(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			counterparty, err := types.ParseAddress(e.Counterparty)
			if err != nil {
				return err
			}
			if err := endpoint.SetTrustedCounterparty(cfg.Owner, types.ChainID(e.ChainID), counterparty); err != nil {
				return err
			}
		}
	}

	srv := &server{
		cfg:         cfg,
		agents:      agents,
		feedback:    feedback,
		validations: validations,
		endpoint:    endpoint,
		signer:      signer,
		emitter:     emitter,
		verifier:    verifier,
	}
	if archive != nil {
		srv.archive = archive
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("bridge server listening", "port", cfg.Port, "chain", uint64(cfg.Chain))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type config struct {
	Port                string
	Chain               types.ChainID
	Owner               types.Address
	SelfAddress         types.Address
	TransportToken      string
	TransportAddress    types.Address
	AdminToken          string
	WebhookURL          string
	WebhookSecret       string
	SignerKey           ed25519.PrivateKey
	TrustedSourceChain  types.ChainID
	TrustedOriginSender types.Address
	Routes              map[types.ChainID]string
}

func loadConfig() (config, error) {
	cfg := config{
		Port:           envDefault("SERVICE_PORT", "8090"),
		TransportToken: os.Getenv("TRANSPORT_TOKEN"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		Routes:         make(map[types.ChainID]string),
	}
	if cfg.TransportToken == "" || cfg.AdminToken == "" {
		return config{}, errors.New("TRANSPORT_TOKEN and ADMIN_TOKEN are required")
	}

	chain, err := strconv.ParseUint(envDefault("CHAIN_ID", "1"), 10, 64)
	if err != nil {
		return config{}, errors.New("CHAIN_ID must be an integer")
	}
	cfg.Chain = types.ChainID(chain)

	cfg.Owner, err = types.ParseAddress(os.Getenv("OWNER_ADDRESS"))
	if err != nil {
		return config{}, errors.New("OWNER_ADDRESS must be a 20-byte hex address")
	}
	cfg.SelfAddress, err = types.ParseAddress(os.Getenv("SELF_ADDRESS"))
	if err != nil {
		return config{}, errors.New("SELF_ADDRESS must be a 20-byte hex address")
	}

	// The transport principal is a capability: whoever presents
	// TRANSPORT_TOKEN acts as this derived address.
	cfg.TransportAddress = tokenAddress(cfg.TransportToken)

	seedHex := os.Getenv("SIGNER_SEED")
	if seedHex == "" {
		return config{}, errors.New("SIGNER_SEED is required (32-byte hex ed25519 seed)")
	}
	seed, err := hex.DecodeString(strings.TrimPrefix(seedHex, "0x"))
	if err != nil || len(seed) != ed25519.SeedSize {
		return config{}, errors.New("SIGNER_SEED must be a 32-byte hex ed25519 seed")
	}
	cfg.SignerKey = ed25519.NewKeyFromSeed(seed)

	if v := os.Getenv("TRUSTED_SOURCE_CHAIN"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return config{}, errors.New("TRUSTED_SOURCE_CHAIN must be an integer")
		}
		cfg.TrustedSourceChain = types.ChainID(n)
		cfg.TrustedOriginSender, err = types.ParseAddress(os.Getenv("TRUSTED_ORIGIN_SENDER"))
		if err != nil {
			return config{}, errors.New("TRUSTED_ORIGIN_SENDER must be a 20-byte hex address")
		}
	}

	// PEER_ROUTES is "chainId=baseURL" pairs separated by commas.
	if routes := os.Getenv("PEER_ROUTES"); routes != "" {
		for _, pair := range strings.Split(routes, ",") {
			parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
			if len(parts) != 2 {
				return config{}, errors.New("PEER_ROUTES must be chainId=baseURL pairs")
			}
			n, err := strconv.ParseUint(parts[0], 10, 64)
			if err != nil {
				return config{}, errors.New("PEER_ROUTES chain ids must be integers")
			}
			cfg.Routes[types.ChainID(n)] = strings.TrimRight(parts[1], "/")
		}
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// tokenAddress maps a bearer token onto the 20-byte principal it acts as.
func tokenAddress(token string) types.Address {
	sum := sha256.Sum256([]byte(token))
	var a types.Address
	copy(a[:], sum[:20])
	return a
}
