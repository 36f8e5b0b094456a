// Command sighunter is the bounty-hunting daemon: it follows the ledger's
// order feed, ranks open bounties by expected profit, races searches over
// the best ones, and submits found solutions through a protected endpoint.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Amr-9/SigHunter/internal/config"
	"github.com/Amr-9/SigHunter/internal/evaluator"
	"github.com/Amr-9/SigHunter/internal/feed"
	"github.com/Amr-9/SigHunter/internal/hunter"
	"github.com/Amr-9/SigHunter/internal/ledger"
	"github.com/Amr-9/SigHunter/internal/orderbook"
)

var cfg struct {
	RPCURL        string `long:"rpc-url" env:"SIGHUNTER_RPC_URL" description:"websocket RPC endpoint for the event feed"`
	RelayURL      string `long:"relay-url" env:"SIGHUNTER_RELAY_URL" description:"protected RPC endpoint for submissions (defaults to rpc-url)"`
	FeedWSURL     string `long:"feed-ws-url" env:"SIGHUNTER_FEED_WS_URL" description:"websocket JSON mirror of the feed, used instead of on-chain logs when set"`
	Contract      string `long:"contract" env:"SIGHUNTER_CONTRACT" description:"ledger contract address"`
	StartBlock    uint64 `long:"start-block" env:"SIGHUNTER_START_BLOCK" description:"first block to backfill events from"`
	PrivateKey    string `long:"private-key" env:"SIGHUNTER_PRIVATE_KEY" description:"hex private key used to sign fills"`
	DBPath        string `long:"db-path" env:"SIGHUNTER_DB_PATH" description:"event log database path" default:"sighunter.db"`
	ConfigPath    string `long:"config" env:"SIGHUNTER_CONFIG" description:"tuning file (yaml)"`
	MetricsAddr   string `long:"metrics-addr" env:"SIGHUNTER_METRICS_ADDR" description:"prometheus listen address" default:":9090"`
	SubmitsPerMin int    `long:"submits-per-min" env:"SIGHUNTER_SUBMITS_PER_MIN" description:"submission rate limit, 0 = unlimited" default:"6"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("Failed to parse arguments", zap.Error(err))
	}

	tuning, err := config.Load(cfg.ConfigPath)
	if err != nil {
		logger.Fatal("Failed to load tuning config", zap.Error(err))
	}
	costModel, err := tuning.CostModel()
	if err != nil {
		logger.Fatal("Invalid cost model", zap.Error(err))
	}

	eval, err := evaluator.New(costModel, tuning.AlphabetSet(), tuning.Search.DeepenTo)
	if err != nil {
		logger.Fatal("Failed to build evaluator", zap.Error(err))
	}

	store, err := orderbook.OpenStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("Failed to open event store", zap.Error(err))
	}
	defer store.Close()

	book, err := orderbook.Open(store)
	if err != nil {
		logger.Fatal("Failed to replay event store", zap.Error(err))
	}
	logger.Info("order book restored",
		zap.Int("orders", book.Len()),
		zap.Uint64("last_seq", book.LastSeq()))

	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		logger.Fatal("Invalid private key", zap.Error(err))
	}
	contract := common.HexToAddress(cfg.Contract)

	relayURL := cfg.RelayURL
	if relayURL == "" {
		relayURL = cfg.RPCURL
	}
	relayClient, err := ethclient.DialContext(ctx, relayURL)
	if err != nil {
		logger.Fatal("Failed to dial relay endpoint", zap.Error(err))
	}
	defer relayClient.Close()
	submitter := ledger.NewEthereum(relayClient, contract, key, logger)

	var eventFeed feed.Feed
	if cfg.FeedWSURL != "" {
		eventFeed = feed.NewWS(cfg.FeedWSURL, book.LastSeq(), logger)
	} else {
		rpcClient, dialErr := ethclient.DialContext(ctx, cfg.RPCURL)
		if dialErr != nil {
			logger.Fatal("Failed to dial RPC endpoint", zap.Error(dialErr))
		}
		defer rpcClient.Close()
		from := cfg.StartBlock
		if resume := book.LastSeq() >> 20; resume > from {
			from = resume // resume from the block of the last stored event
		}
		eventFeed = feed.NewEthereum(rpcClient, contract, from, logger)
	}

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if serveErr := metricsServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(serveErr))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	h := hunter.New(book, eventFeed, eval, submitter, hunter.Options{
		Alphabet:         tuning.AlphabetSet(),
		MaxLen:           tuning.Search.MaxLen,
		DeepenTo:         tuning.Search.DeepenTo,
		Workers:          tuning.Search.Workers,
		MaxCandidates:    tuning.Search.MaxCandidates,
		Concurrent:       tuning.Search.Concurrent,
		SubmitsPerMinute: cfg.SubmitsPerMin,
	}, logger)

	logger.Info("hunter started",
		zap.String("contract", contract.Hex()),
		zap.Int("max_len", tuning.Search.MaxLen),
		zap.Int("deepen_to", tuning.Search.DeepenTo),
		zap.Int("concurrent", tuning.Search.Concurrent))

	if err := h.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("Hunter stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
