package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"pawnshop/internal/access"
	"pawnshop/internal/access/revocation"
	"pawnshop/internal/audit"
	categoryhandler "pawnshop/internal/category/handler"
	categoryservice "pawnshop/internal/category/service"
	categorystore "pawnshop/internal/category/store"
	clienthandler "pawnshop/internal/client/handler"
	clientservice "pawnshop/internal/client/service"
	clientstore "pawnshop/internal/client/store"
	jwttoken "pawnshop/internal/jwt_token"
	pawnhandler "pawnshop/internal/pawn/handler"
	pawnmetrics "pawnshop/internal/pawn/metrics"
	pawnservice "pawnshop/internal/pawn/service"
	pawnstore "pawnshop/internal/pawn/store"
	"pawnshop/internal/platform/config"
	"pawnshop/internal/platform/database"
	"pawnshop/internal/platform/httpserver"
	"pawnshop/internal/platform/logger"
	"pawnshop/internal/platform/metrics"
	"pawnshop/internal/platform/redis"
	httptransport "pawnshop/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	mintRole := flag.String("mint-token", "", "print a signed token for the given role (Admin or Employee) and exit")
	subject := flag.String("subject", "dev", "subject of the minted token")
	revokeRaw := flag.String("revoke-token", "", "add the given token to the Redis revocation list and exit")
	flag.Parse()

	cfg := config.FromEnv()
	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)

	if *mintRole != "" {
		if err := mintToken(jwtService, *subject, *mintRole, cfg.Auth.TokenTTL); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if *revokeRaw != "" {
		if err := revokeToken(context.Background(), cfg.Redis, jwtService, *revokeRaw); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	log := logger.New(cfg.LogLevel)
	if err := run(cfg, log, jwtService); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func mintToken(jwtService *jwttoken.JWTService, subject, rawRole string, ttl time.Duration) error {
	role, err := access.ParseRole(rawRole)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	token, err := jwtService.GenerateAccessToken(subject, role.String(), ttl)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	fmt.Println(token)
	return nil
}

// revokeToken stores the token id in Redis until the token would expire. The
// server only consults Redis, so there is nothing to revoke without it.
func revokeToken(ctx context.Context, cfg config.RedisConfig, jwtService *jwttoken.JWTService, raw string) error {
	claims, err := jwtService.ValidateToken(raw)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	client, err := redis.Dial(ctx, cfg)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if client == nil {
		return errors.New("revoke token: REDIS_URL is required")
	}
	defer client.Close()

	trl := revocation.NewRedisTRL(client.UniversalClient)
	if err := revocation.RevokeUntil(ctx, trl, claims.ID, claims.ExpiresAt.Time, time.Now()); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	fmt.Println("revoked", claims.ID)
	return nil
}

// backend is the persistence wiring selected by STORE_BACKEND.
type backend struct {
	clients    clientStore
	categories categoryStore
	pawns      pawnStore
	tx         pawnservice.StoreTx
	db         *sql.DB
}

type clientStore interface {
	clientservice.Store
	pawnservice.ClientDirectory
}

type categoryStore interface {
	categoryservice.Store
	pawnservice.CategoryDirectory
}

type pawnStore interface {
	pawnservice.Store
	clientservice.ReferenceCounter
	categoryservice.ReferenceCounter
}

func openBackend(ctx context.Context, cfg config.Server) (*backend, error) {
	if cfg.Store != config.BackendPostgres {
		clients := clientstore.NewInMemory()
		categories := categorystore.NewInMemory()
		return &backend{
			clients:    clients,
			categories: categories,
			pawns:      pawnstore.NewInMemory(clients, categories),
		}, nil
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &backend{
		clients:    clientstore.NewPostgres(db),
		categories: categorystore.NewPostgres(db),
		pawns:      pawnstore.NewPostgres(db),
		tx:         pawnstore.NewPostgresTx(db),
		db:         db,
	}, nil
}

func run(cfg config.Server, log *slog.Logger, jwtService *jwttoken.JWTService) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	checks := map[string]httptransport.HealthCheck{}
	if store.db != nil {
		defer store.db.Close()
		checks["database"] = store.db.PingContext
	}
	log.Info("store backend ready", "backend", string(cfg.Store))

	gateOpts := []access.Option{access.WithLogger(log)}
	redisClient, err := redis.Dial(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
		gateOpts = append(gateOpts, access.WithRevocationChecker(revocation.NewRedisTRL(redisClient.UniversalClient)))
		log.Info("token revocation list enabled")
	} else {
		log.Warn("REDIS_URL not set, token revocation is disabled")
	}
	gate := access.NewGate(jwttoken.NewJWTServiceAdapter(jwtService), gateOpts...)

	sink, closeSink, err := auditSink(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeSink()
	publisher := audit.NewAsyncPublisher(sink, log, 1024)
	auditCtx, stopAudit := context.WithCancel(context.WithoutCancel(ctx))
	go publisher.Run(auditCtx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(reg)
	}

	clientSvc := clientservice.New(store.clients,
		clientservice.WithReferenceCounter(store.pawns),
		clientservice.WithLogger(log),
		clientservice.WithAuditPublisher(publisher),
		clientservice.WithMetrics(m),
	)
	categorySvc := categoryservice.New(store.categories,
		categoryservice.WithReferenceCounter(store.pawns),
		categoryservice.WithLogger(log),
		categoryservice.WithAuditPublisher(publisher),
		categoryservice.WithMetrics(m),
	)
	pawnOpts := []pawnservice.Option{
		pawnservice.WithLogger(log),
		pawnservice.WithAuditPublisher(publisher),
		pawnservice.WithMetrics(m),
	}
	if cfg.MetricsEnabled {
		pawnOpts = append(pawnOpts, pawnservice.WithLedgerMetrics(pawnmetrics.New(reg)))
	}
	if store.tx != nil {
		pawnOpts = append(pawnOpts, pawnservice.WithStoreTx(store.tx))
	}
	pawnSvc := pawnservice.New(store.pawns, store.clients, store.categories, pawnOpts...)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:     log,
		Gate:       gate,
		Metrics:    m,
		Checks:     checks,
		Clients:    clienthandler.New(clientSvc, log),
		Categories: categoryhandler.New(categorySvc, log),
		Pawns:      pawnhandler.New(pawnSvc, log),
	})
	srv := httpserver.New(cfg.Addr, router, cfg.HTTP)
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		stopAudit()
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	serveErr := httpserver.Run(ctx, srv, ln, cfg.HTTP.ShutdownTimeout, log)
	stopAudit()
	if serveErr != nil {
		return serveErr
	}
	select {
	case <-publisher.Done():
	case <-time.After(cfg.HTTP.ShutdownTimeout):
		log.Warn("audit events still pending at exit")
	}
	return nil
}

// auditSink publishes to Kafka when brokers are configured and to the log
// otherwise.
func auditSink(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (audit.Publisher, func(), error) {
	if len(cfg.Brokers) == 0 {
		return audit.NewLogPublisher(log), func() {}, nil
	}
	kp, err := audit.NewKafkaPublisher(cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	if err := kp.EnsureTopic(ctx, 3, 1); err != nil {
		kp.Close()
		return nil, nil, err
	}
	log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	return kp, kp.Close, nil
}
