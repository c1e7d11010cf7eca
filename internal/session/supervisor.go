package session

import (
	"encoding/json"

	"duosiege/internal/credential"
	"duosiege/internal/game"

	"go.uber.org/zap"
)

// Conn is the narrow duplex-frame surface the supervisor needs from a
// transport connection; gorilla's *websocket.Conn satisfies it directly,
// and tests can substitute an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// outcome is the reason a phase of the session ended, mirroring
// original_source's InGameLoopResult plus a "joined" case for PreGame.
type outcome int

const (
	outcomeJoined outcome = iota
	outcomeClientDisconnected
	outcomePlayerLeft
	outcomeForcedDisconnect
)

// Supervisor drives one authenticated connection through
// PreGame → InGame → Cleanup (spec §4.7). Authenticate (step 1) happens
// before the supervisor is constructed, at the HTTP upgrade boundary.
type Supervisor struct {
	Conn      Conn
	Registry  *game.LobbyRegistry
	Hub       *Hub
	Live      *LiveConnections
	Creds     *credential.Store
	AccountID int64
	Username  string
	Log       *zap.Logger
}

type connEvent struct {
	data []byte
	err  error
}

// Run executes the full per-connection lifecycle and returns once the
// connection is done (client closed, or evicted by a newer session for
// the same account).
func (s *Supervisor) Run() {
	cancel := s.Live.Register(s.AccountID)
	defer s.Live.Clear(s.AccountID, cancel)
	defer s.Conn.Close()

	s.send(game.OutboundMessage{Type: game.OutboundPlayerID, Data: s.AccountID})

	reads := make(chan connEvent)
	go func() {
		for {
			_, data, err := s.Conn.ReadMessage()
			reads <- connEvent{data, err}
			if err != nil {
				return
			}
		}
	}()

	for {
		lobbyID, result := s.preGame(cancel, reads)
		if result != outcomeJoined {
			s.clearCredentialBinding(result)
			return
		}

		result = s.inGame(lobbyID, cancel, reads)
		s.leaveLobby(lobbyID)
		if result == outcomePlayerLeft {
			continue
		}
		s.clearCredentialBinding(result)
		return
	}
}

// leaveLobby removes the player from lobbyID's roster. This runs on every
// exit from InGame (spec §4.7 step 4), including the normal
// leaveLobby→PreGame transition, since the lobby seat must not be held by
// a connection that is no longer in that lobby.
func (s *Supervisor) leaveLobby(lobbyID int) {
	if lobbyID < 0 {
		return
	}
	if lobby := s.Registry.Lobby(lobbyID); lobby != nil {
		lobby.WithExclusive(func(l *game.Lobby) { l.RemovePlayer(int(s.AccountID)) })
		s.Registry.BroadcastStatus()
	}
}

// clearCredentialBinding implements the terminal half of spec §4.7 step
// 5: it only runs when Run is about to return for good (the connection
// itself is ending), never on the leaveLobby→PreGame loopback, and it
// leaves the binding alone on a forced disconnect so the evicting
// session keeps ownership of it.
func (s *Supervisor) clearCredentialBinding(result outcome) {
	if result != outcomeForcedDisconnect && s.Creds != nil {
		s.Creds.ClearSession(s.AccountID)
	}
}

func (s *Supervisor) send(msg game.OutboundMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = s.Conn.WriteMessage(1, body) // websocket.TextMessage == 1
}

// preGame implements spec §4.7 step 3: subscribe to lobby status, publish
// it, and await a join, a close, or eviction.
func (s *Supervisor) preGame(cancel chan struct{}, reads chan connEvent) (int, outcome) {
	status := s.Registry.Subscribe()
	defer s.Registry.Unsubscribe(status)

	s.send(game.OutboundMessage{Type: game.OutboundLobbyStatus, Data: s.Registry.Status()})

	for {
		select {
		case <-cancel:
			s.send(ErrorMessage("Logged in from another location"))
			return -1, outcomeForcedDisconnect

		case st := <-status:
			s.send(game.OutboundMessage{Type: game.OutboundLobbyStatus, Data: st})

		case ev := <-reads:
			if ev.err != nil {
				return -1, outcomeClientDisconnected
			}
			cmd, err := DecodeCommand(ev.data)
			if err != nil {
				s.send(ErrorMessage(err.Error()))
				continue
			}
			if cmd.Action != actionJoinLobby {
				s.send(ErrorMessage("not in a lobby yet"))
				continue
			}
			player := &game.Player{ID: int(s.AccountID), Username: s.Username, Gold: game.StartingGold}
			if !s.Registry.JoinLobby(cmd.LobbyID, player) {
				s.send(ErrorMessage("lobby unavailable"))
				continue
			}
			return cmd.LobbyID, outcomeJoined
		}
	}
}

// inGame implements spec §4.7 step 4: forward lobby broadcasts to the
// socket while dispatching inbound commands into the lobby.
func (s *Supervisor) inGame(lobbyID int, cancel chan struct{}, reads chan connEvent) outcome {
	lobby := s.Registry.Lobby(lobbyID)
	if lobby == nil {
		return outcomeClientDisconnected
	}
	msgs := s.Hub.Subscribe(lobbyID)
	defer s.Hub.Unsubscribe(lobbyID, msgs)

	for {
		select {
		case <-cancel:
			s.send(ErrorMessage("Logged in from another location"))
			return outcomeForcedDisconnect

		case msg := <-msgs:
			s.send(msg)

		case ev := <-reads:
			if ev.err != nil {
				return outcomeClientDisconnected
			}
			cmd, err := DecodeCommand(ev.data)
			if err != nil {
				s.send(ErrorMessage(err.Error()))
				continue
			}
			if cmd.Action == actionLeaveLobby {
				return outcomePlayerLeft
			}
			s.dispatch(lobby, cmd)
		}
	}
}

func (s *Supervisor) dispatch(lobby *game.Lobby, cmd Command) {
	playerID := int(s.AccountID)
	switch cmd.Action {
	case actionPlace:
		var errMsg string
		lobby.WithExclusive(func(l *game.Lobby) { errMsg = l.Place(playerID, cmd.Shape, cmd.Row, cmd.Col) })
		if errMsg != "" {
			s.send(ErrorMessage(errMsg))
		}
	case actionSellByID:
		var errMsg string
		lobby.WithExclusive(func(l *game.Lobby) { errMsg = l.SellByID(playerID, cmd.EntityID) })
		if errMsg != "" {
			s.send(ErrorMessage(errMsg))
		}
	case actionHireWorker:
		var errMsg string
		lobby.WithExclusive(func(l *game.Lobby) { errMsg = l.HireWorker(playerID) })
		if errMsg != "" {
			s.send(ErrorMessage(errMsg))
		}
	case actionSkipToCombat:
		lobby.WithExclusive(func(l *game.Lobby) { l.SkipToCombat() })
	case actionRequestUnitInfo:
		var (
			info  game.UnitInfo
			found bool
		)
		lobby.WithExclusive(func(l *game.Lobby) { info, found = l.RequestUnitInfo(playerID, cmd.EntityID) })
		if found {
			s.send(game.OutboundMessage{Type: game.OutboundUnitInfo, Data: game.UnitInfoData{
				Damage: info.Damage, Rate: info.Rate, Range: info.Range,
				AttackType: info.DamageType.String(), Armor: info.Armor,
				IsBoss: info.IsBoss, SellValue: info.SellValue,
			}})
		}
	}
}
