package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"verichain/internal/agent"
	"verichain/internal/agent/ethagent"
	"verichain/internal/binding"
	"verichain/internal/credential/issuance"
	credmetrics "verichain/internal/credential/metrics"
	"verichain/internal/credential/store"
	"verichain/internal/credential/verification"
	"verichain/internal/fingerprint"
	"verichain/internal/ledger"
	"verichain/internal/platform/config"
	"verichain/internal/platform/health"
	"verichain/internal/platform/kafka/producer"
	"verichain/internal/platform/logger"
	redisplatform "verichain/internal/platform/redis"
	"verichain/internal/session"
	"verichain/internal/tracer"
	httptransport "verichain/internal/transport/http"
	"verichain/pkg/platform/audit"
	auditmetrics "verichain/pkg/platform/audit/metrics"
	"verichain/pkg/platform/audit/publisher"
	auditkafka "verichain/pkg/platform/audit/store/kafka"
	"verichain/pkg/platform/audit/store/memory"
	"verichain/pkg/platform/middleware/auth"
	"verichain/pkg/platform/middleware/metadata"
	request "verichain/pkg/platform/middleware/request"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing verichain",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"ledger", ledgerMode(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// Service metrics live on reg; the default registry carries the runtime
	// collectors and the redis pool gauges.
	reg := prometheus.NewRegistry()
	gatherers := prometheus.Gatherers{reg, prometheus.DefaultGatherer}
	healthHandler := health.New(cfg.Environment)

	// Connection provider and ledger
	provider, factory, selector, err := buildLedger(ctx, g, cfg, log, healthHandler)
	if err != nil {
		return err
	}
	adapter := agent.New(provider, agent.WithLogger(log))
	defer adapter.Close()

	// Audit trail
	auditLog, closeAudit, err := buildAudit(cfg, reg, log, healthHandler)
	if err != nil {
		return err
	}
	defer closeAudit()

	sess := session.New(adapter, binding.New(factory),
		session.WithLogger(log),
		session.WithMetrics(session.NewMetrics(reg)),
		session.WithAuditLogger(auditLog),
	)
	healthHandler.ReportSession(func() string { return sess.Snapshot().State.String() })

	hasher, err := fingerprint.New(fingerprint.Algorithm(cfg.Issuance.FingerprintAlgorithm))
	if err != nil {
		return fmt.Errorf("fingerprint: %w", err)
	}

	// Advisory credential list
	list, err := buildCredentialList(ctx, g, cfg, log, healthHandler)
	if err != nil {
		return err
	}

	credMetrics := credmetrics.NewWithRegistry(reg)
	trace := tracer.NewOTel()

	issuer := issuance.New(sess, hasher,
		issuance.WithLogger(log),
		issuance.WithMetrics(credMetrics),
		issuance.WithTracer(trace),
		issuance.WithAuditLogger(auditLog),
		issuance.WithCredentialList(list),
		issuance.WithDefaultExternalURI(cfg.Issuance.DefaultExternalURI),
	)
	verifier := verification.New(sess,
		verification.WithLogger(log),
		verification.WithMetrics(credMetrics),
		verification.WithTracer(trace),
		verification.WithAuditLogger(auditLog),
	)
	reconciler := store.NewReconciler(list, verifier, sess,
		store.WithMetrics(credMetrics),
		store.WithTracer(trace),
		store.WithLogger(log),
	)

	var validator auth.JWTValidator
	if cfg.Auth.JWTSecret != "" {
		validator = auth.NewHMACValidator(cfg.Auth.JWTSecret)
	} else {
		log.Warn("API_JWT_SECRET not set; mutating routes are unauthenticated")
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Session:        httptransport.NewSessionHandler(sess, selector, log),
		Credentials:    httptransport.NewCredentialHandler(issuer, verifier, list, reconciler, sess, log),
		Health:         healthHandler,
		Validator:      validator,
		Metadata:       metadata.NewMiddleware(metadata.DefaultConfig()),
		Metrics:        request.NewMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}),
		RequestTimeout: cfg.Ledger.ConfirmationTimeout + time.Minute,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	if cfg.Ledger.RegistryAddress != "" {
		g.Go(func() error {
			autoBind(ctx, sess, cfg.Ledger.RegistryAddress, log)
			return nil
		})
	}

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func ledgerMode(cfg config.Server) string {
	if cfg.Ledger.RPCURL == "" {
		return "in-process"
	}
	return "rpc"
}

// buildLedger returns the connection provider, the registry factory and the
// account selector. Without an RPC URL it falls back to the in-process
// ledger, which only binaries built with the devnet tag carry.
func buildLedger(ctx context.Context, g *errgroup.Group, cfg config.Server, log *slog.Logger, h *health.Handler) (agent.Provider, ledger.Factory, httptransport.AccountSelector, error) {
	if cfg.Ledger.RPCURL == "" {
		return devLedger()
	}

	client, err := ethclient.DialContext(ctx, cfg.Ledger.RPCURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dial ledger rpc: %w", err)
	}

	approver := ethagent.AutoApprove
	if !cfg.Agent.AutoApprove {
		approver = func(context.Context, common.Address) bool { return false }
	}
	wallet, err := ethagent.New(client, cfg.Agent.SignerKeys,
		ethagent.WithApprover(approver),
		ethagent.WithPollInterval(cfg.Agent.NetworkPollInterval),
		ethagent.WithLogger(log),
	)
	if err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("signing agent: %w", err)
	}
	h.RegisterCheck("ledger_rpc", wallet.Healthy)
	g.Go(func() error {
		defer client.Close()
		return wallet.Run(ctx)
	})
	return wallet, ledger.NewEthFactory(client, wallet), wallet, nil
}

// buildAudit persists audit events in memory and fans them out to Kafka when
// brokers are configured.
func buildAudit(cfg config.Server, reg prometheus.Registerer, log *slog.Logger, h *health.Handler) (*audit.Logger, func(), error) {
	opts := []publisher.PublisherOption{
		publisher.WithAsyncBuffer(1024),
		publisher.WithPublisherLogger(log),
		publisher.WithMetrics(auditmetrics.New(reg)),
	}

	var kafkaProducer *producer.Producer
	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Acks:            "all",
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka producer: %w", err)
		}
		kafkaProducer = p
		opts = append(opts, publisher.WithSink(auditkafka.NewSink(p, cfg.Kafka.AuditTopic)))
		h.RegisterCheck("kafka", p.Healthy)
		log.Info("audit events published to kafka", "topic", cfg.Kafka.AuditTopic)
	}

	pub := publisher.NewPublisher(memory.NewInMemoryStore(), opts...)
	closeFn := func() {
		pub.Close()
		if kafkaProducer != nil {
			if err := kafkaProducer.Close(); err != nil {
				log.Warn("kafka producer close failed", "error", err)
			}
		}
	}
	return audit.NewLogger(log, pub), closeFn, nil
}

// buildCredentialList uses Redis when configured and an in-memory list
// otherwise.
func buildCredentialList(ctx context.Context, g *errgroup.Group, cfg config.Server, log *slog.Logger, h *health.Handler) (store.Store, error) {
	client, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if client == nil {
		return store.NewInMemoryStore(cfg.Issuance.CredentialListTTL), nil
	}

	h.RegisterCheck("redis", client.Health)
	g.Go(func() error {
		defer client.Close()
		return client.RunPoolStats(ctx, poolStatsInterval)
	})
	log.Info("advisory credential list backed by redis")
	return store.NewRedisStore(client.Client, cfg.Issuance.CredentialListTTL), nil
}

// autoBind connects and binds the configured registry at startup. Failures
// are logged; clients can still drive the session over the API.
func autoBind(ctx context.Context, sess *session.Session, registry string, log *slog.Logger) {
	if _, err := sess.Connect(ctx); err != nil {
		log.WarnContext(ctx, "startup connect failed", "error", err)
		return
	}
	if _, err := sess.Bind(ctx, registry); err != nil {
		log.WarnContext(ctx, "startup bind failed", "registry", registry, "error", err)
		return
	}
	if _, err := sess.Authorize(ctx); err != nil {
		log.WarnContext(ctx, "startup authorize failed", "error", err)
	}
}
