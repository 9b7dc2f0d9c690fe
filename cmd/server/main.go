// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/katro/partyhub/internal/auth"
	"github.com/katro/partyhub/internal/cache"
	"github.com/katro/partyhub/internal/database"
	"github.com/katro/partyhub/internal/identity"
	"github.com/katro/partyhub/internal/middleware"
	"github.com/katro/partyhub/internal/mixer"
	"github.com/katro/partyhub/internal/registry"
	"github.com/katro/partyhub/internal/voice"
	"github.com/katro/partyhub/internal/ws"
)

func main() {
	// A key pair on disk lets tokens survive restarts and be issued by
	// other services; without one an ephemeral pair is generated.
	if priv, pub := os.Getenv("JWT_PRIVATE_KEY_PATH"), os.Getenv("JWT_PUBLIC_KEY_PATH"); priv != "" && pub != "" {
		if err := auth.InitFromPath(priv, pub); err != nil {
			log.Fatalf("loading signing keys failed: %v", err)
		}
	} else {
		auth.Init()
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	pool, err := database.Connect(context.Background())
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	users := database.NewUserStore(pool)
	contentStore := database.NewContentStore(pool)

	idCache, err := cache.Connect()
	if err != nil {
		logger.Warnf("identity cache unavailable, continuing without it: %v", err)
		idCache = nil
	}
	resolver := identity.NewResolver(users, idCache, logger)

	voiceClient := voice.NewFromEnv(logger)
	ffmpeg := mixer.NewFFmpegFromEnv(logger)

	gameServer := ws.NewGameServer(registry.New(logger), contentStore, users, resolver, voiceClient, ffmpeg, logger)
	lobbyServer := ws.NewLobbyServer(registry.New(logger), resolver, gameServer, logger)
	gameServer.BindLobbies(lobbyServer)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/lobby/ws", middleware.LogMiddleware(logger)(lobbyServer.HandleWS()))
	mux.Handle("/game/ws", middleware.LogMiddleware(logger)(gameServer.HandleWS()))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
