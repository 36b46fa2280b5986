package main

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
	"go.uber.org/zap"

	"github.com/LightmNFT/lightm-market/internal/api"
	"github.com/LightmNFT/lightm-market/internal/config"
	"github.com/LightmNFT/lightm-market/internal/export"
	"github.com/LightmNFT/lightm-market/internal/ledger"
	"github.com/LightmNFT/lightm-market/internal/market"
	"github.com/LightmNFT/lightm-market/internal/metrics"
	"github.com/LightmNFT/lightm-market/internal/model"
	"github.com/LightmNFT/lightm-market/internal/storage"
	"github.com/LightmNFT/lightm-market/internal/storage/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	genesis, err := config.LoadGenesis(cfg.GenesisPath)
	if err != nil {
		return err
	}

	mtr, err := metrics.New()
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	led, factory, err := buildState(genesis, logger, mtr)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := []storage.Sink{storage.NewJsonlSink(cfg.EventsOut, cfg.PairsOut)}
	var state export.StateStore = export.NewFileStateStore(cfg.StateFile)

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
		state = export.NewPostgresStateStore(store, "exporter")
	}

	exporter := export.NewExporter(export.Config{
		FlushInterval: cfg.FlushInterval,
		BatchSize:     cfg.ExportBatch,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
	}, factory, sinks, state, logger, mtr)

	handler := api.NewHandler(factory, led, logger)
	router := handler.Routes(api.NewMiddleware(logger, mtr), api.RouterConfig{
		CORSOrigins:    cfg.CORSOrigins,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		RequestTimeout: cfg.RequestTimeout,
		DevMode:        cfg.DevMode,
		MetricsHandler: mtr.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	exporterDone := make(chan struct{})

	go func() {
		defer close(exporterDone)
		if err := exporter.Run(ctx); err != nil {
			errCh <- fmt.Errorf("exporter: %w", err)
		}
	}()
	go func() {
		logger.Info("http server start",
			zap.String("listen", cfg.ListenAddr),
			zap.Bool("dev_mode", cfg.DevMode),
			zap.String("events_out", cfg.EventsOut),
			zap.Bool("postgres", cfg.PGDSN != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	<-exporterDone

	logger.Info("shutdown complete")
	return runErr
}

// buildState seeds a fresh ledger and factory from the genesis file. Curve
// installs and whitelist flips run as the genesis owner, so the journal's
// first entries record the initial governance state.
func buildState(g config.Genesis, logger *zap.Logger, mtr *metrics.Metrics) (*ledger.Ledger, *market.Factory, error) {
	led := ledger.NewLedger()

	for _, tok := range g.Tokens {
		addr, err := model.ParseAddress(tok.Address)
		if err != nil {
			return nil, nil, err
		}
		if err := led.RegisterToken(addr, ledger.TokenInfo{Symbol: tok.Symbol, Decimals: tok.Decimals}); err != nil {
			return nil, nil, err
		}
		for holder, amount := range tok.Balances {
			holderAddr, err := model.ParseAddress(holder)
			if err != nil {
				return nil, nil, err
			}
			amt, err := model.ParseAmount(amount)
			if err != nil {
				return nil, nil, err
			}
			if err := led.CreditToken(addr, holderAddr, amt); err != nil {
				return nil, nil, err
			}
		}
	}

	for _, col := range g.Collections {
		addr, err := model.ParseAddress(col.Address)
		if err != nil {
			return nil, nil, err
		}
		if err := led.RegisterCollection(addr, ledger.CollectionInfo{Symbol: col.Symbol, Enumerable: col.Enumerable}); err != nil {
			return nil, nil, err
		}
		for owner, ids := range col.NFTs {
			ownerAddr, err := model.ParseAddress(owner)
			if err != nil {
				return nil, nil, err
			}
			for _, id := range ids {
				if err := led.MintNFT(addr, id, ownerAddr); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	for _, acct := range g.Accounts {
		addr, err := model.ParseAddress(acct.Address)
		if err != nil {
			return nil, nil, err
		}
		amt, err := model.ParseAmount(acct.Balance)
		if err != nil {
			return nil, nil, err
		}
		if err := led.CreditNative(addr, amt); err != nil {
			return nil, nil, err
		}
	}

	factoryAddr, err := model.ParseAddress(g.Factory.Address)
	if err != nil {
		return nil, nil, err
	}
	owner, err := model.ParseAddress(g.Factory.Owner)
	if err != nil {
		return nil, nil, err
	}
	recipient, err := model.ParseAddress(g.Factory.ProtocolFeeRecipient)
	if err != nil {
		return nil, nil, err
	}
	multiplier, err := model.ParseWad(g.Factory.ProtocolFeeMultiplier)
	if err != nil {
		return nil, nil, err
	}
	templates, err := g.Factory.TemplateAddresses()
	if err != nil {
		return nil, nil, err
	}

	factory, err := market.NewFactory(market.FactoryConfig{
		Address:               factoryAddr,
		Owner:                 owner,
		Templates:             templates,
		ProtocolFeeRecipient:  recipient,
		ProtocolFeeMultiplier: multiplier,
	}, led, logger, mtr)
	if err != nil {
		return nil, nil, err
	}

	for _, c := range g.Curves {
		curveAddr, err := model.ParseAddress(c.Address)
		if err != nil {
			return nil, nil, err
		}
		if err := factory.InstallCurve(owner, curveAddr, c.Kind); err != nil {
			return nil, nil, err
		}
		if c.Allowed {
			if err := factory.SetCurveAllowed(owner, curveAddr, true); err != nil {
				return nil, nil, err
			}
		}
	}

	logger.Info("genesis applied",
		zap.String("factory", factoryAddr.Hex()),
		zap.String("owner", owner.Hex()),
		zap.String("protocol_fee_multiplier", model.FormatWad(multiplier)),
		zap.Int("curves", len(g.Curves)),
		zap.Int("tokens", len(g.Tokens)),
		zap.Int("collections", len(g.Collections)),
	)

	return led, factory, nil
}
