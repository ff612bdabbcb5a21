package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terralima/portalgo/internal/config"
	"github.com/terralima/portalgo/internal/database"
	"github.com/terralima/portalgo/internal/handlers"
	"github.com/terralima/portalgo/internal/services/email"
	"github.com/terralima/portalgo/internal/services/niubiz"
	"github.com/terralima/portalgo/internal/services/odoo"
	"github.com/terralima/portalgo/internal/services/payments"
	"github.com/terralima/portalgo/internal/services/sms"
	"github.com/terralima/portalgo/internal/services/vouchers"
	"github.com/terralima/portalgo/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (embedded vs external is detected automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Connect to the ERP and resolve the service uid when not pinned
	erp := odoo.NewClient(cfg.Odoo)
	if cfg.Odoo.UserID == 0 {
		uid, err := erp.ResolveUID()
		if err != nil {
			log.Printf("⚠️ Could not resolve ERP uid at startup: %v", err)
		} else {
			log.Printf("✅ ERP uid resolved: %d", uid)
		}
	}

	// 4. Wire services
	var codeStore sms.CodeStore
	if db != nil {
		codeStore = sms.NewDBStore(db)
	} else {
		codeStore = sms.NewMemoryStore()
	}
	mailer := email.NewService(email.NewSender(cfg.Email))
	verifier := sms.NewVerifier(codeStore, sms.NewSender(cfg.Twilio)).WithMailer(mailer)

	gateway := niubiz.NewClient(cfg.Niubiz)
	if !gateway.Configured() {
		log.Println("⚠️ NIUBIZ_MERCHANT_ID not set, card payments disabled")
	}

	hub := websocket.NewHub()
	go hub.Run()

	router := handlers.NewRouter(handlers.Deps{
		Cfg:      cfg,
		RPC:      erp,
		Payments: payments.NewService(erp),
		Verifier: verifier,
		Vouchers: vouchers.NewService(erp, cfg.Vouchers),
		Niubiz:   gateway,
		Mailer:   mailer,
		Hub:      hub,
		DB:       db,
	})

	// 5. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Terra Lima portal listening on port %s (env: %s)", cfg.Port, cfg.NodeEnv)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("⚠️ Received signal: %v. Shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if db != nil {
		if err := db.Close(); err != nil {
			log.Printf("Database close error: %v", err)
		}
	}

	log.Println("✅ Shutdown complete")
}
