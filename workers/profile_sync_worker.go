// workers/profile_sync_worker.go
package workers

import (
	"context"
	"power-token-exchange/logger"
	"power-token-exchange/services"
	"time"

	"github.com/sirupsen/logrus"
)

// ProfileSyncWorker re-reads the account of every signed-in remote session
// so balance changes made by other clients reach the session cache.
type ProfileSyncWorker struct {
	store    *services.Store
	sessions *services.SessionRegistry
	interval time.Duration
}

func NewProfileSyncWorker(store *services.Store, sessions *services.SessionRegistry, interval time.Duration) *ProfileSyncWorker {
	return &ProfileSyncWorker{store: store, sessions: sessions, interval: interval}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	logger.Info("🔁 Starting Profile Sync Worker (hosted profiles → sessions)…")
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.syncBatch(ctx)
		case <-ctx.Done():
			logger.Info("⏹️ Profile Sync Worker stopped")
			return
		}
	}
}

// syncBatch refreshes remote sessions. Local sessions read the store
// directly and need no refresh. Errors never change a session's mode.
func (w *ProfileSyncWorker) syncBatch(ctx context.Context) int {
	refreshed := 0
	w.sessions.Each(func(sess *services.Session) {
		if sess.Mode() != services.ModeRemote || sess.Account() == nil {
			return
		}
		if _, err := w.store.Account(ctx, sess); err != nil {
			logger.WithFields(logrus.Fields{"session": sess.ID, "error": err}).Warn("[SYNC] ⚠️ profile refresh failed")
			return
		}
		refreshed++
	})
	if refreshed > 0 {
		logger.Debug("[SYNC] ✅ refreshed ", refreshed, " remote session(s)")
	}
	return refreshed
}
