package game

import (
	"sync"

	"go.uber.org/zap"
)

// LobbyRegistry owns a fixed-size vector of lobbies and a single broadcast
// channel carrying aggregate lobby status (spec §4.8). The vector itself is
// static; each contained lobby is individually exclusive.
type LobbyRegistry struct {
	lobbies []*Lobby
	drivers []*TickDriver
	mu      sync.Mutex // guards driver lifecycle only, never a lobby's own state

	statusMu   sync.Mutex
	statusSubs []chan []LobbyStatusEntry

	hub Broadcaster
	log *zap.Logger
}

// NewLobbyRegistry creates n lobbies, each wired to hub for per-lobby
// broadcast.
func NewLobbyRegistry(n int, hub Broadcaster, log *zap.Logger) *LobbyRegistry {
	r := &LobbyRegistry{hub: hub, log: log}
	r.lobbies = make([]*Lobby, n)
	r.drivers = make([]*TickDriver, n)
	for i := 0; i < n; i++ {
		r.lobbies[i] = NewLobby(i, hub, log)
	}
	return r
}

// Count returns the number of lobbies the registry manages.
func (r *LobbyRegistry) Count() int { return len(r.lobbies) }

// Lobby returns the lobby at id, or nil if out of range.
func (r *LobbyRegistry) Lobby(id int) *Lobby {
	if id < 0 || id >= len(r.lobbies) {
		return nil
	}
	return r.lobbies[id]
}

// Status returns the aggregate {id, player_count} for every lobby.
func (r *LobbyRegistry) Status() []LobbyStatusEntry {
	out := make([]LobbyStatusEntry, len(r.lobbies))
	for i, l := range r.lobbies {
		out[i] = LobbyStatusEntry{ID: i, PlayerCount: l.PlayerCount()}
	}
	return out
}

// Subscribe registers a channel that receives the aggregate lobby status on
// every roster mutation. The channel is buffered; a slow subscriber misses
// intermediate updates rather than blocking publishers.
func (r *LobbyRegistry) Subscribe() chan []LobbyStatusEntry {
	ch := make(chan []LobbyStatusEntry, 4)
	r.statusMu.Lock()
	r.statusSubs = append(r.statusSubs, ch)
	r.statusMu.Unlock()
	return ch
}

// Unsubscribe removes a previously-subscribed channel.
func (r *LobbyRegistry) Unsubscribe(ch chan []LobbyStatusEntry) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	for i, c := range r.statusSubs {
		if c == ch {
			r.statusSubs = append(r.statusSubs[:i], r.statusSubs[i+1:]...)
			close(c)
			return
		}
	}
}

// BroadcastStatus publishes the current aggregate status to every
// subscriber, dropping it for any subscriber whose buffer is full.
func (r *LobbyRegistry) BroadcastStatus() {
	status := r.Status()
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	for _, ch := range r.statusSubs {
		select {
		case ch <- status:
		default:
		}
	}
}

// JoinLobby appends player to lobbyID's roster. On success it re-broadcasts
// aggregate status and, if the roster just became full, starts the
// lobby's TickDriver. Returns false if the id is invalid or the lobby is
// full.
func (r *LobbyRegistry) JoinLobby(lobbyID int, player *Player) bool {
	lobby := r.Lobby(lobbyID)
	if lobby == nil {
		return false
	}
	added := false
	becameFull := false
	lobby.WithExclusive(func(l *Lobby) {
		added = l.AddPlayer(player)
		becameFull = added && l.IsFull()
	})
	if !added {
		return false
	}
	if becameFull {
		r.startDriver(lobbyID)
	}
	r.BroadcastStatus()
	return true
}

// LeaveLobby removes player from lobbyID's roster and re-broadcasts status.
func (r *LobbyRegistry) LeaveLobby(lobbyID, playerID int) {
	lobby := r.Lobby(lobbyID)
	if lobby == nil {
		return
	}
	lobby.WithExclusive(func(l *Lobby) {
		l.RemovePlayer(playerID)
	})
	r.BroadcastStatus()
}

func (r *LobbyRegistry) startDriver(lobbyID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drivers[lobbyID] != nil {
		return
	}
	driver := NewTickDriver(r.lobbies[lobbyID], r.log)
	r.drivers[lobbyID] = driver
	go func() {
		driver.Run()
		r.mu.Lock()
		r.drivers[lobbyID] = nil
		r.mu.Unlock()
	}()
}
