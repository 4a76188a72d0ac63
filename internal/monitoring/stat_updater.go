package monitoring

import (
	"maps"
	"time"

	"github.com/isdelr/hbnb-api/internal/services"
	"github.com/isdelr/hbnb-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

// ActionStatsUpdate carries the per-kind object counts.
const ActionStatsUpdate = "stats.update"

// StatsSource is the part of the entity service the updater reads.
type StatsSource interface {
	Stats() (map[string]int, error)
}

// OpenStats starts the unit of work for one update and returns the function
// ending it.
type OpenStats func() (StatsSource, func())

// StatUpdater periodically broadcasts the object counts to websocket
// clients whenever they change.
type StatUpdater struct {
	open     OpenStats
	events   services.Publisher
	interval time.Duration
	done     chan struct{}
	last     map[string]int
}

// NewStatUpdater creates a new StatUpdater.
func NewStatUpdater(open OpenStats, events services.Publisher, interval time.Duration) *StatUpdater {
	return &StatUpdater{
		open:     open,
		events:   events,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Run starts the periodic updates.
func (su *StatUpdater) Run() {
	log.Info().Dur("interval", su.interval).Msg("Starting background stat updater...")
	ticker := time.NewTicker(su.interval)
	defer ticker.Stop()

	// Run once immediately on start
	su.update()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-ticker.C:
			su.update()
		}
	}
}

// Stop halts the periodic updates.
func (su *StatUpdater) Stop() {
	close(su.done)
}

func (su *StatUpdater) update() {
	source, end := su.open()
	defer end()

	stats, err := source.Stats()
	if err != nil {
		log.Error().Err(err).Msg("StatUpdater: failed to count objects")
		return
	}
	if su.last != nil && maps.Equal(stats, su.last) {
		return
	}
	su.last = stats
	su.events.Publish(websocket.AllTopics, ActionStatsUpdate, stats)
}
