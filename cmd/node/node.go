package main

import (
	"context"
	"flag"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/ethereum/go-ethereum/log"
	"github.com/helinwang/bridgetower/pkg/config"
	"github.com/helinwang/bridgetower/pkg/feed"
	"github.com/helinwang/bridgetower/pkg/ledger"
	"github.com/helinwang/bridgetower/pkg/market"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const statusInterval = time.Minute

func init() {
	// a missing .env is fine, the environment may be set already
	_ = godotenv.Load()
}

func setupLogging(level string) error {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return err
	}

	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat(false))))
	return nil
}

func main() {
	c := flag.String("c", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*c)
	if err != nil {
		panic(err)
	}

	err = setupLogging(cfg.LogLevel)
	if err != nil {
		panic(err)
	}

	key, err := cfg.Key()
	if err != nil {
		panic(err)
	}
	owner := crypto.PubkeyToAddress(key.PublicKey)

	chain := ledger.NewChain(new(big.Int).SetUint64(cfg.ChainID))
	if cfg.StartTime != 0 {
		chain.SetTime(cfg.StartTime)
	}

	m, err := market.Bootstrap(chain, market.Params{
		Owner:          owner,
		Wallets:        cfg.WalletAddresses(),
		ProtocolFee:    cfg.Market.ProtocolFee,
		FeeReceiver:    cfg.FeeReceiverAddress(owner),
		NativePayments: cfg.Market.NativePayments,
		LockPeriod:     cfg.Market.LockPeriod,
	})
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	f := feed.New()
	if cfg.Feed.Listen != "" {
		detach := f.Attach(chain)
		srv, addr, err := feed.Start(cfg.Feed.Listen, f)
		if err != nil {
			panic(err)
		}
		log.Info("feed started", "addr", addr)

		g.Go(func() error {
			<-ctx.Done()
			detach()
			f.Close()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				log.Info("status", "root", chain.Hash(), "time", chain.Time(), "exchange", m.Exchange.Address(), "clients", f.Clients())
			}
		}
	})

	log.Info("node started", "chain", cfg.ChainID, "owner", owner, "exchange", m.Exchange.Address())
	err = g.Wait()
	if err != nil {
		log.Error("node stopped", "err", err)
		os.Exit(1)
	}
	log.Info("node stopped")
}
