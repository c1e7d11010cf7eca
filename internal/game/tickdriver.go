package game

import (
	"time"

	"go.uber.org/zap"
)

// TickDriver runs one lobby's simulation at a fixed rate. It is spawned
// once the lobby's roster first becomes full (spec §4.6) and exits on its
// own once the lobby empties back out, mirroring the teacher's
// ticker-goroutine shape in its original tick-rate engine.
type TickDriver struct {
	lobby *Lobby
	log   *zap.Logger
	stop  chan struct{}
}

// NewTickDriver constructs a driver for lobby; call Run to start it.
func NewTickDriver(lobby *Lobby, log *zap.Logger) *TickDriver {
	return &TickDriver{lobby: lobby, log: log, stop: make(chan struct{})}
}

// Stop requests the driver's tick loop to exit at the next interval.
func (d *TickDriver) Stop() {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
}

// Run fires the tick loop at TickRateHz until Stop is called or the lobby's
// roster empties out (detected by polling, since the lobby slot has no
// other signal for "abandoned").
func (d *TickDriver) Run() {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / TickRateHz))
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			var events []CombatEvent
			empty := false
			d.lobby.WithExclusive(func(l *Lobby) {
				if len(l.Roster()) == 0 {
					empty = true
					return
				}
				events = l.Tick(TickDelta)
				l.BroadcastGamestate()
				if len(events) > 0 {
					l.BroadcastMessage(OutboundMessage{
						Type: OutboundCombatEvents,
						Data: EncodeCombatEvents(events),
					})
				}
			})
			if empty {
				if d.log != nil {
					d.log.Info("tick driver exiting: lobby empty", zap.Int("lobby_id", d.lobby.ID))
				}
				return
			}
		}
	}
}
