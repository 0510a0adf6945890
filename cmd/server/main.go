package main // Entry point package

import (
	"context" // Context for shutdown propagation
	"log"     // Logging library
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/quicktix/booking-engine/internal/booking"
	"github.com/quicktix/booking-engine/internal/config"
	"github.com/quicktix/booking-engine/internal/database"
	"github.com/quicktix/booking-engine/internal/handler"
	"github.com/quicktix/booking-engine/internal/inventory"
	"github.com/quicktix/booking-engine/internal/model"
	"github.com/quicktix/booking-engine/internal/notify"
	"github.com/quicktix/booking-engine/internal/reconcile"
	"github.com/quicktix/booking-engine/internal/repository"
	"github.com/quicktix/booking-engine/internal/router"
	"github.com/quicktix/booking-engine/internal/seatcache"
	"github.com/quicktix/booking-engine/internal/seatlock"
	"github.com/quicktix/booking-engine/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable store.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	// Ephemeral coordination store.  The engine cannot run without it.
	rdb, dbNum := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection failed")
	}
	defer rdb.Close()
	kv := store.NewRedis(rdb, dbNum)

	// Repositories.
	typeRepo := repository.NewTicketTypeRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	statsRepo := repository.NewStatsRepo(db)
	orderRepo := repository.NewOrderRepo(db, statsRepo, seatRepo, typeRepo)
	voucherRepo := repository.NewVoucherRepo(db)

	// Coordination layer.
	ledger := inventory.NewLedger(kv, repository.NewInventorySource(typeRepo, seatRepo), cfg.TicketInfoTTL)
	locks := seatlock.NewTable(kv)
	snapshots := booking.NewSnapshotStore(kv)
	cache := seatcache.New(kv, repository.NewSeatCacheSource(seatRepo, typeRepo), cfg.SeatCacheTTL)

	// Seats-released events go to RabbitMQ when a broker is configured.
	var notifier notify.Notifier = notify.Nop{}
	if cfg.AMQPURL != "" {
		notifier = notify.NewAMQPNotifier(cfg.AMQPURL)
	}

	svc := booking.NewService(ledger, locks, orderRepo, voucherRepo, cache, snapshots, notifier, cfg.BookingTTL)

	// Expiry reconciliation: events or scan, never both.
	worker := reconcile.NewWorker(kv, ledger, snapshots, orderRepo, cache, notifier)
	go runReconciler(ctx, cfg, kv, worker)

	// Seats released by other instances flow back into this instance's
	// availability payload through the broker.  AddSeats deduplicates,
	// so hearing our own events again is harmless.
	if cfg.AMQPURL != "" {
		go func() {
			err := notify.StartSeatsReleasedConsumer(ctx, cfg.AMQPURL, func(ctx context.Context, ev notify.SeatsReleased) error {
				seats := make([]model.SeatInfo, 0, len(ev.Seats))
				for _, s := range ev.Seats {
					info, err := cache.SeatInfo(ctx, s.ID)
					if err != nil {
						info = model.SeatInfo{ID: s.ID, SectionID: s.SectionID}
					}
					seats = append(seats, info)
				}
				return cache.AddSeats(ctx, ev.ShowID, seats)
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("seats-released consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	router.RegisterRoutes(e) // Health check
	router.RegisterBooking(e, handler.NewBookingHandler(svc), handler.NewSeatsHandler(cache), config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		<-ctx.Done()
		log.Println("shutting down")
		_ = e.Shutdown(context.Background())
	}()

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Println(err) // Echo returns http.ErrServerClosed on graceful shutdown
	}
}

// runReconciler starts exactly one reconciliation mechanism.  In auto
// mode it prefers the key-expiry event stream and falls back to the
// periodic scan when the store refuses to enable notifications, which
// is the norm on managed Redis.
func runReconciler(ctx context.Context, cfg config.Config, kv *store.Redis, worker *reconcile.Worker) {
	mode := cfg.ReconcileMode
	if mode == config.ReconcileAuto {
		if err := kv.EnableExpiryEvents(ctx); err != nil {
			log.Printf("expiry events unavailable, falling back to scan: %v", err)
			mode = config.ReconcileScan
		} else {
			mode = config.ReconcileEvents
		}
	}

	var err error
	switch mode {
	case config.ReconcileEvents:
		err = worker.RunEvents(ctx, kv)
	case config.ReconcileScan:
		err = worker.RunScan(ctx, cfg.ScanInterval)
	}
	if err != nil && ctx.Err() == nil {
		log.Printf("reconcile worker stopped: %v", err)
	}
}
