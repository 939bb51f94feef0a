package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cryptodial/cryptodial/internal/chain"
	"github.com/cryptodial/cryptodial/internal/chain/evm"
	"github.com/cryptodial/cryptodial/internal/chain/sol"
	"github.com/cryptodial/cryptodial/internal/config"
	"github.com/cryptodial/cryptodial/internal/directory"
	"github.com/cryptodial/cryptodial/internal/flow"
	"github.com/cryptodial/cryptodial/internal/ledger"
	"github.com/cryptodial/cryptodial/internal/notify"
	"github.com/cryptodial/cryptodial/internal/sessionstore"
	"github.com/cryptodial/cryptodial/internal/storage"
	"github.com/cryptodial/cryptodial/internal/ussd"
	"github.com/cryptodial/cryptodial/internal/vault"
)

// sweepInterval is how often expired sessions are purged in the background.
const sweepInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the USSD callback endpoint",
	Long: `Start the HTTP server that answers USSD gateway callbacks and runs
the wallet menu flows against the configured chains.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	v, err := vault.New(cfg.Security.EncryptionSalt)
	if err != nil {
		return err
	}

	store, err := storage.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	sessions, err := sessionstore.Open(cfg.Store.SessionDB, cfg.Security.SessionTTL(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()
	sessions.StartSweeper(ctx, sweepInterval)

	notifier, err := notify.NewClient(notify.Config{
		BaseURL:  cfg.Notify.BaseURL,
		Username: cfg.Notify.Username,
		APIKey:   cfg.Notify.APIKey,
		From:     cfg.Notify.From,
		RatePerS: cfg.Notify.RatePerS,
		Burst:    cfg.Notify.Burst,
	})
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	orchestrator := flow.New(
		sessions,
		directory.New(store),
		ledger.New(store),
		v,
		registry,
		notifier,
		logger,
	)

	mux := http.NewServeMux()
	mux.Handle("/ussd", ussd.NewHandler(orchestrator.BuildMenu(), logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Debug("listening on %s", cfg.Server.Listen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildRegistry registers one adapter creator per enabled network.
func buildRegistry(cfg *config.Config) (*chain.Registry, error) {
	registry := chain.NewRegistry()

	register := func(id chain.ID, nc config.NetworkConfig, opts evm.Options) {
		if !nc.Enabled {
			return
		}
		ep := chain.Endpoint{RPCURL: nc.RPC, ChainID: nc.ChainID, Timeout: nc.Timeout()}
		registry.Register(id, ep, func(ep chain.Endpoint) (chain.Adapter, error) {
			return evm.NewClient(ep, opts)
		})
	}

	register(chain.EVM, cfg.Networks.EVM, evm.Options{
		Chain:             chain.EVM,
		MnemonicSupported: true,
	})
	register(chain.Binance, cfg.Networks.Binance, evm.Options{
		Chain:     chain.Binance,
		LegacyGas: true,
		// BSC wallets are opaque keys only; recovery is unsupported there.
	})
	register(chain.Polygon, cfg.Networks.Polygon, evm.Options{
		Chain:             chain.Polygon,
		MnemonicSupported: true,
	})

	if cfg.Networks.Solana.Enabled {
		ep := chain.Endpoint{
			RPCURL:  cfg.Networks.Solana.RPC,
			Timeout: cfg.Networks.Solana.Timeout(),
		}
		registry.Register(chain.Solana, ep, func(ep chain.Endpoint) (chain.Adapter, error) {
			return sol.NewClient(ep)
		})
	}

	if len(registry.Supported()) == 0 {
		return nil, fmt.Errorf("no networks enabled in configuration")
	}
	return registry, nil
}
