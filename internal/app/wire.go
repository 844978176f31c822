package app

import (
	"context"
	"path/filepath"

	"mixchat/internal/logging"
	"mixchat/internal/services/session"
	"mixchat/internal/store"
	"mixchat/internal/transport/nym"
)

// NewApp constructs the dependency graph from cfg: log backend, local
// database, keystore, mixnet transport, session service. The transport
// connects eagerly so a dead daemon fails the command up front.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	if err := cfg.EnsureHome(); err != nil {
		return nil, err
	}

	logBackend, err := logging.New(cfg.LogFile, cfg.LogLevel, false)
	if err != nil {
		return nil, err
	}

	db, err := store.OpenSQLite(filepath.Join(cfg.Home, "mixchat.db"))
	if err != nil {
		return nil, err
	}
	keystore := store.NewFileKeystore(cfg.Home)

	transport, err := nym.Dial(ctx, cfg.NymWS, logBackend.GetLogger("nym"))
	if err != nil {
		db.Close()
		return nil, err
	}

	svc := session.New(transport, db, keystore, cfg.ServerAddress, logBackend.GetLogger("session"))

	return &App{
		Config:    cfg,
		Session:   svc,
		Store:     db,
		Transport: transport,
		db:        db,
	}, nil
}
