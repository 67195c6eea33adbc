package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/abenezerz/chapa-shop/internal/auth"
	"github.com/abenezerz/chapa-shop/internal/catalog"
	"github.com/abenezerz/chapa-shop/internal/chapa"
	"github.com/abenezerz/chapa-shop/internal/config"
	"github.com/abenezerz/chapa-shop/internal/httpx"
	kafkax "github.com/abenezerz/chapa-shop/internal/kafka"
	"github.com/abenezerz/chapa-shop/internal/orders"
	"github.com/abenezerz/chapa-shop/internal/payments"
	"github.com/abenezerz/chapa-shop/internal/postgres"
	"github.com/abenezerz/chapa-shop/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	orderProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, logger)
	orderProd.Start(ctx)
	payOKProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentVerified, 1024, logger)
	payOKProd.Start(ctx)
	payFailProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentFailed, 1024, logger)
	payFailProd.Start(ctx)

	// Repos & services
	catalogRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	paymentRepo := &payments.Repo{DB: db}

	orderSvc := &orders.Service{
		Store:       orderRepo,
		Products:    catalogRepo,
		Producer:    orderProd,
		Log:         logger,
		ServiceName: cfg.ServiceName,
	}
	paymentSvc := &payments.Service{
		Store:        paymentRepo,
		Orders:       orderRepo,
		Gateway:      chapa.NewClient(cfg.ChapaBaseURL, cfg.ChapaSecretKey),
		ProducerOK:   payOKProd,
		ProducerFail: payFailProd,
		Log:          logger,
		Currency:     cfg.Currency,
		ReturnURL:    cfg.AppBaseURL + "/payment/chapa/return",
		ServiceName:  cfg.ServiceName,
	}

	// Server-side reconciliation watcher: polls after every initialize so a
	// missed webhook still resolves the payment. On success the user's cart
	// is cleared and the status cache primed for the return page.
	poller := &payments.Poller{
		Check: paymentSvc.Status,
		Log:   logger,
		OnSuccess: func(ctx context.Context, res *payments.VerifyResult) {
			_ = rdb.Del(ctx, fmt.Sprintf(redisx.KeyCart, res.UserID)).Err()
			_ = rdb.Set(ctx, fmt.Sprintf(redisx.KeyPaymentStatus, res.TxRef),
				string(payments.StatusSuccess), redisx.TTLStatusCache).Err()
		},
	}
	watch := func(txRef string) {
		go func() {
			r := poller.Watch(ctx, txRef)
			logger.Info("payment watch finished",
				zap.String("tx_ref", txRef),
				zap.String("outcome", r.Outcome.String()),
				zap.Int("attempts", r.Attempts))
		}()
	}

	// Router & handlers
	sessions := &auth.Sessions{Redis: rdb}
	router := httpx.NewRouter(sessions)
	(&httpx.OrdersHandler{Service: orderSvc, Log: logger}).Register(router)
	(&httpx.PaymentsHandler{Service: paymentSvc, Redis: rdb, Watch: watch, Log: logger}).Register(router)
	(&httpx.CatalogHandler{Repo: catalogRepo, Log: logger}).Register(router)
	(&httpx.CartHandler{Redis: rdb, Log: logger}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	cancel() // stop watchers & producer loops
	for _, p := range []*kafkax.Producer{orderProd, payOKProd, payFailProd} {
		p.WaitClosed()
	}
}
