// workers/session_reaper.go
package workers

import (
	"power-token-exchange/logger"
	"power-token-exchange/services"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSessionReaper drops idle sessions from the registry on a fixed
// interval. Callers shut the returned scheduler down on exit.
func StartSessionReaper(registry *services.SessionRegistry, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := registry.Reap(time.Now()); n > 0 {
				logger.Infof("🧹 [Scheduler] reaped %d idle session(s), %d live", n, registry.Count())
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
