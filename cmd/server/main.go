package main

import (
    "context"
    "log"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/config"
    "github.com/homescope/viewing-api/internal/database"
    "github.com/homescope/viewing-api/internal/handler"
    "github.com/homescope/viewing-api/internal/middleware"
    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/queue"
    "github.com/homescope/viewing-api/internal/repository"
    "github.com/homescope/viewing-api/internal/router"
    "github.com/homescope/viewing-api/internal/scheduler"
    "github.com/homescope/viewing-api/internal/subscription"
    "github.com/homescope/viewing-api/internal/validation"
)

func main() {
    _ = godotenv.Load() // .env is optional; real deployments set env vars directly
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Repositories.
    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    props := repository.NewPropertyRepo(db)
    viewings := repository.NewViewingRepo(db)
    subs := repository.NewSubscriptionRepo(db)

    // Engines.
    audit := queue.NewPublisher()
    sched := scheduler.New(viewings, props, users, audit)
    mgr := subscription.New(subs, users, audit, config.LoadPlanPolicy())

    // HTTP server.
    e := echo.New()
    e.HideBanner = true
    e.Validator = validation.New()

    rdb := config.NewRedisClient()
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    planGate := middleware.RequirePlan(mgr.HasAtLeast, model.PlanPremium)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
    router.RegisterPublic(e, handler.NewPropertyHandler(props), cache)
    router.RegisterSearch(e, handler.NewPropertyHandler(props), cfg.JWTSecret, planGate)
    router.RegisterCustomer(e, handler.NewViewingCustomerHandler(sched), cfg.JWTSecret)
    router.RegisterSubscriptions(e, handler.NewSubscriptionHandler(mgr), cfg.JWTSecret)
    router.RegisterAgent(e, handler.NewViewingAgentHandler(sched), cfg.JWTSecret)
    router.RegisterAdmin(e, handler.NewAdminHandler(sched, mgr), cfg.JWTSecret)

    // Audit trail consumer; reconnects on its own.
    go func() {
        if err := queue.StartAuditConsumer(); err != nil {
            log.Printf("audit consumer stopped: %v", err)
        }
    }()

    // Periodic sweeps: expire subscriptions and complete overdue
    // confirmed viewings.
    go runSweeps(sched, mgr, cfg.SweepInterval)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}

func runSweeps(sched *scheduler.Service, mgr *subscription.Manager, every time.Duration) {
    ticker := time.NewTicker(every)
    defer ticker.Stop()
    for range ticker.C {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
        if n, err := mgr.SweepExpired(ctx, time.Now().UTC()); err != nil {
            log.Printf("subscription sweep: %v", err)
        } else if n > 0 {
            log.Printf("subscription sweep: %d processed", n)
        }
        if n, err := sched.CompleteOverdue(ctx); err != nil {
            log.Printf("viewing sweep: %v", err)
        } else if n > 0 {
            log.Printf("viewing sweep: %d completed", n)
        }
        cancel()
    }
}
