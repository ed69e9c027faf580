package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"duplexchat/internal/config"
	"duplexchat/internal/conn"
	"duplexchat/internal/dispatch"
	"duplexchat/internal/logging"
	"duplexchat/internal/session"
	"duplexchat/internal/store"

	authsvc "duplexchat/internal/service/auth"
	filesvc "duplexchat/internal/service/file"
	groupsvc "duplexchat/internal/service/group"
	messagesvc "duplexchat/internal/service/message"
)

func main() {
	cfg := config.Load()
	logger := logging.NewTextLogger(cfg.LogLevel)

	db, err := store.Open(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		log.Fatalf("store connection failed: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		log.Fatalf("store migration failed: %v", err)
	}

	files, err := filesvc.NewService(db, cfg.DataDir, cfg.FileChunkSize)
	if err != nil {
		log.Fatalf("file service init failed: %v", err)
	}

	registry := session.New()
	auth := authsvc.NewService(db)
	groups := groupsvc.NewService(db)
	messages := messagesvc.NewService(db)

	server := conn.NewServer(registry, logger, cfg.MaxClients, cfg.MaxPendingWrites)
	dispatcher := dispatch.New(registry, auth, groups, messages, files, server, logger, cfg.HistoryPageSize)
	server.SetDispatcher(dispatcher)

	addr := fmt.Sprintf("%s:%d", cfg.BindHost, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listen failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "server listening", "addr", addr)
	if err := server.Serve(ctx, listener); err != nil {
		log.Fatalf("serve failed: %v", err)
	}
}
