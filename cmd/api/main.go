package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teamgate.org/internal/access"
	"teamgate.org/internal/auth"
	"teamgate.org/internal/directory"
	"teamgate.org/internal/httpapi"
	"teamgate.org/internal/notify"
	"teamgate.org/internal/obs"
	"teamgate.org/internal/resource"
	"teamgate.org/internal/store/pg"
)

// Overridable at build time via -ldflags.
var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("TEAMGATE_PG_DSN")
	if dsn == "" {
		log.Fatal("missing TEAMGATE_PG_DSN")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	addr := os.Getenv("TEAMGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	baseURL := os.Getenv("TEAMGATE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	dir, err := directory.NewService(store)
	if err != nil {
		log.Fatalf("directory service: %v", err)
	}
	issuer := auth.NewIssuer(store)
	sessions, err := auth.NewManager(store, store.Users(), issuer)
	if err != nil {
		log.Fatalf("session manager: %v", err)
	}
	gate := access.NewGate(access.NewResolver(store))
	resources, err := resource.NewService(store, gate)
	if err != nil {
		log.Fatalf("resource service: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Directory: dir,
		Sessions:  sessions,
		Issuer:    issuer,
		Resources: resources,
		Gate:      gate,
		Sender:    notify.LogSender{BaseURL: baseURL},
		Ready:     httpapi.ReadyProbe{DB: store.DB()},
		Version:   version,
		BaseURL:   baseURL,
	})

	handler := httpapi.Logging(
		httpapi.SecurityHeaders(
			httpapi.CORS(
				httpapi.MaxBodyBytes(
					httpapi.RateLimit(api.Handler(), 20, 10),
					1<<20,
				),
			),
		),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Expired links are dead weight once past their TTL; sweep them hourly.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n, err := issuer.PurgeExpiredLinks(sweepCtx, time.Now().UTC()); err == nil && n > 0 {
					log.Printf("purged %d expired login links", n)
				}
			}
		}
	}()

	log.Printf("Starting teamgate-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	log.Println("Stopped")
}
