// ─────────────────────────────────────────────────────────────────────────────
// Beta 1.7.3 login front-end — driver entry point
//
// Orchestration:
//   - Phase 0: load config.json overlay (if present), open the session
//     store, zerolog startup logging.
//   - Phase 1: Core.Init/Listen, register the SIGINT/SIGTERM handler.
//   - Phase 2: the 50Hz tick loop — Core.Poll, drain the join queue into
//     an in-process player table and the sqlite session ledger, emit a
//     per-tick heartbeat only while internal/control reports recent
//     activity.
//   - Phase 3: Core.Deinit, close the store, exit.
// ─────────────────────────────────────────────────────────────────────────────

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/simulo-server/beta173login/internal/config"
	"github.com/simulo-server/beta173login/internal/constants"
	"github.com/simulo-server/beta173login/internal/control"
	"github.com/simulo-server/beta173login/internal/proactor"
	"github.com/simulo-server/beta173login/internal/session"
	"github.com/simulo-server/beta173login/internal/store"
)

// player is the driver's own minimal record of a joined session — the
// core forgets about a connection entirely once it hands it off, so
// anything done with a joined player (game logic, tracking, eventually
// writing to the socket again) starts here.
type player struct {
	handle          int32
	username        string
	protocolVersion int32
	sessionID       int64
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
		With().
		Timestamp().
		Str("component", "login-frontend").
		Logger()

	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config.json")
	}

	sessionStore, err := store.Open("sessions.db")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}
	defer sessionStore.Close()

	var core proactor.Core
	if err := core.Init(cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize network core")
	}
	if err := core.Listen(); err != nil {
		log.Fatal().Err(err).Msg("failed to start listening")
	}
	defer core.Deinit()

	log.Info().Int("port", cfg.Port).Msg("listening for connections")

	stop, hot := control.Flags()
	installSignalHandler()

	players := make(map[int32]*player)
	var queue session.Queue
	ticker := time.NewTicker(constants.TickInterval)
	defer ticker.Stop()

	for {
		<-ticker.C

		if *stop == 1 {
			log.Info().Msg("shutdown requested, draining and exiting")
			return
		}

		joined := core.Poll(&queue)
		for _, entry := range queue.Entries() {
			recordJoin(sessionStore, players, entry)
		}

		control.PollCooldown()
		if joined == 0 && *hot == 0 {
			continue // skip the heartbeat while the server has been idle
		}
		if joined > 0 {
			control.SignalActivity()
		}
		log.Debug().Int("joined", joined).Int("players", len(players)).Msg("tick")
	}
}

func recordJoin(sessionStore *store.Store, players map[int32]*player, entry session.Incoming) {
	username := entry.UsernameString()

	sessionID, err := sessionStore.Record(username, entry.ProtocolVersion, entry.MapSeed, entry.Dimension, time.Now().Unix())
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to record session")
		sessionID = -1
	}

	players[entry.Handle] = &player{
		handle:          entry.Handle,
		username:        username,
		protocolVersion: entry.ProtocolVersion,
		sessionID:       sessionID,
	}

	log.Info().
		Str("username", username).
		Int64("session_id", sessionID).
		Int32("protocol_version", entry.ProtocolVersion).
		Msg("login accepted")
}

func installSignalHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", fmt.Sprint(sig)).Msg("received shutdown signal")
		control.Shutdown()
	}()
}
