package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noknowgram/server/internal/auth"
	"github.com/noknowgram/server/internal/config"
	"github.com/noknowgram/server/internal/core"
	"github.com/noknowgram/server/internal/store"
	"github.com/noknowgram/server/internal/store/sqlite"
	transporthttp "github.com/noknowgram/server/internal/transport/http"
	"github.com/noknowgram/server/internal/upload"
)

// App wires together the core registries and the transport layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with the provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    24 * time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	uploads, err := upload.NewStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return nil, fmt.Errorf("init uploads: %w", err)
	}

	presence := core.NewPresence()
	rooms := core.NewRooms(cfg.PublicRooms...)
	msglog := core.NewMessageLog(rooms)
	calls := core.NewCallManager(presence, rooms)
	relay := core.NewRelay(calls, presence)

	if err := seedMessageLog(context.Background(), st, rooms, msglog); err != nil {
		// Snapshot restore is best-effort.
		logger.Warn().Err(err).Msg("failed to seed message log from snapshot")
	}

	hub := core.NewHub(presence, rooms, msglog, calls, relay, snapshotStore{st}, logger)

	server := transporthttp.NewServer(transporthttp.Deps{
		Hub:      hub,
		Presence: presence,
		Rooms:    rooms,
		MsgLog:   msglog,
		Auth:     authService,
		Uploads:  uploads,
	}, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the hub and the HTTP server, blocking until context
// cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

const seedMessagesPerRoom = 200

// seedMessageLog restores the in-memory log from the persisted snapshot.
func seedMessageLog(ctx context.Context, st store.MessageStore, rooms *core.Rooms, msglog *core.MessageLog) error {
	roomIDs, err := st.Rooms(ctx)
	if err != nil {
		return err
	}
	for _, roomID := range roomIDs {
		stored, err := st.RecentMessages(ctx, roomID, seedMessagesPerRoom)
		if err != nil {
			return err
		}
		// Room metadata is not part of the snapshot; restored rooms
		// come back as public.
		rooms.EnsureRoom(roomID, roomID, core.VisibilityPublic)

		msgs := make([]core.Message, 0, len(stored))
		for _, m := range stored {
			msgs = append(msgs, snapshotToCore(m))
		}
		msglog.Seed(roomID, msgs)
	}
	return nil
}

// snapshotStore adapts store.MessageStore to the hub's snapshot interface.
type snapshotStore struct {
	st store.MessageStore
}

func (s snapshotStore) SaveMessage(ctx context.Context, msg core.Message) error {
	stored := &store.Message{
		ID:        msg.ID,
		Room:      msg.Room,
		Sender:    msg.From,
		Text:      msg.Text,
		Kind:      string(msg.Kind),
		Seq:       msg.Seq,
		CreatedAt: msg.CreatedAt,
	}
	if msg.File != nil {
		stored.FileID = msg.File.ID
		stored.FileName = msg.File.Name
		stored.FileURL = msg.File.URL
	}
	return s.st.SaveMessage(ctx, stored)
}

func snapshotToCore(m *store.Message) core.Message {
	msg := core.Message{
		ID:        m.ID,
		Room:      m.Room,
		From:      m.Sender,
		Text:      m.Text,
		Kind:      core.MessageKind(m.Kind),
		Seq:       m.Seq,
		CreatedAt: m.CreatedAt,
	}
	if m.FileID != "" || m.FileURL != "" {
		msg.File = &core.FileRef{ID: m.FileID, Name: m.FileName, URL: m.FileURL}
	}
	return msg
}
