package app

import (
	"mixchat/internal/domain"
	"mixchat/internal/services/session"
	"mixchat/internal/store"
)

// App bundles everything a command needs.
type App struct {
	Config    Config
	Session   *session.Service
	Store     domain.Store
	Transport domain.Transport

	db *store.SQLite
}

// Close releases the transport connection and the database.
func (a *App) Close() error {
	err := a.Transport.Close()
	if dbErr := a.db.Close(); err == nil {
		err = dbErr
	}
	return err
}
