package monitoring

import (
	"fmt"

	"github.com/isdelr/hbnb-api/internal/services"
	"github.com/isdelr/hbnb-api/internal/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ActionSnapshotCreated is broadcast after every scheduled snapshot.
const ActionSnapshotCreated = "snapshot.created"

// Scheduler takes registry snapshots on a cron schedule.
type Scheduler struct {
	snapshots services.SnapshotServiceProvider
	events    services.Publisher
	cron      *cron.Cron
}

// NewScheduler creates a scheduler running on the standard five-field cron
// expression expr. events may be nil.
func NewScheduler(expr string, snapshots services.SnapshotServiceProvider, events services.Publisher) (*Scheduler, error) {
	if _, err := cron.ParseStandard(expr); err != nil {
		return nil, fmt.Errorf("invalid snapshot schedule %q: %w", expr, err)
	}
	s := &Scheduler{
		snapshots: snapshots,
		events:    events,
		cron:      cron.New(),
	}
	if _, err := s.cron.AddFunc(expr, s.takeSnapshot); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the scheduler and blocks until Stop.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting snapshot scheduler...")
	s.cron.Run()
}

// Stop halts the scheduler and waits for a running snapshot to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped snapshot scheduler.")
}

func (s *Scheduler) takeSnapshot() {
	snap, err := s.snapshots.CreateSnapshot()
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to create snapshot")
		return
	}
	if s.events != nil {
		s.events.Publish(websocket.AllTopics, ActionSnapshotCreated, snap)
	}
}
