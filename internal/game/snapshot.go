package game

// Outbound message kinds (spec §6 "Outbound envelope").
const (
	OutboundPlayerID      = "PlayerId"
	OutboundLobbyStatus   = "LobbyStatus"
	OutboundGameState     = "GameState"
	OutboundCombatEvents  = "CombatEvents"
	OutboundUnitInfo      = "UnitInfo"
	OutboundError         = "Error"
)

// OutboundMessage is the tagged-union envelope sent server → client:
// {"type":"<kind>","data":<value>}.
type OutboundMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Unit is one entity's wire-visible projection (spec §4.5).
type Unit struct {
	ID          int     `json:"id"`
	Shape       string  `json:"shape"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	OwnerID     int     `json:"owner_id"`
	IsEnemy     bool    `json:"is_enemy"`
	CurrentHP   float64 `json:"current_hp"`
	MaxHP       float64 `json:"max_hp"`
	IsWorker    bool    `json:"is_worker"`
	CurrentMana *float64 `json:"current_mana,omitempty"`
	MaxMana     *float64 `json:"max_mana,omitempty"`
	WorkerState *string  `json:"worker_state,omitempty"`
}

// PlayerView is a roster entry's wire-visible projection.
type PlayerView struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Gold     int    `json:"gold"`
}

// SerializableGameState is the GameState message payload (spec §4.5).
type SerializableGameState struct {
	Units      []Unit       `json:"units"`
	Players    []PlayerView `json:"players"`
	Phase      string       `json:"phase"`
	PhaseTimer float64      `json:"phase_timer"`
	WaveNumber int          `json:"wave_number"`
}

// WireCombatEvent is one CombatEvents array element.
type WireCombatEvent struct {
	AttackerID int     `json:"attacker_id"`
	TargetID   int     `json:"target_id"`
	AttackType string  `json:"attack_type"`
	StartX     float64 `json:"start_x"`
	StartY     float64 `json:"start_y"`
	EndX       float64 `json:"end_x"`
	EndY       float64 `json:"end_y"`
}

// LobbyStatusEntry is one element of the LobbyStatus array.
type LobbyStatusEntry struct {
	ID          int `json:"id"`
	PlayerCount int `json:"player_count"`
}

// UnitInfoData is the UnitInfo message payload.
type UnitInfoData struct {
	Damage     float64 `json:"damage"`
	Rate       float64 `json:"rate"`
	Range      float64 `json:"range"`
	AttackType string  `json:"attack_type"`
	Armor      float64 `json:"armor"`
	IsBoss     bool    `json:"is_boss"`
	SellValue  *int    `json:"sell_value,omitempty"`
}

// EncodeSnapshot projects a lobby's live state into its wire frame. Callers
// must already hold the lobby.
func EncodeSnapshot(l *Lobby) SerializableGameState {
	w := l.World()
	entities := w.Entities()
	units := make([]Unit, 0, len(entities))
	for _, e := range entities {
		c := w.Get(e)
		if c.position == nil {
			continue
		}
		ownerID := -1
		if c.playerID != nil {
			ownerID = *c.playerID
		}
		shapeName := ""
		if c.shape != nil {
			shapeName = c.shape.String()
		}
		var hp, maxHP float64
		if c.health != nil {
			hp, maxHP = c.health.Current, c.health.Max
		}
		u := Unit{
			ID: int(e), Shape: shapeName, X: c.position.X, Y: c.position.Y,
			OwnerID: ownerID, IsEnemy: c.enemy, CurrentHP: hp, MaxHP: maxHP,
			IsWorker: c.worker,
		}
		if c.mana != nil {
			cur, max := c.mana.Current, c.mana.Max
			u.CurrentMana, u.MaxMana = &cur, &max
		}
		if c.workerState != nil {
			s := c.workerState.String()
			u.WorkerState = &s
		}
		units = append(units, u)
	}

	players := make([]PlayerView, 0, len(l.Roster()))
	for _, p := range l.Roster() {
		players = append(players, PlayerView{ID: p.ID, Username: p.Username, Gold: p.Gold})
	}

	return SerializableGameState{
		Units: units, Players: players, Phase: l.Phase().String(),
		PhaseTimer: l.PhaseTimer(), WaveNumber: l.WaveNumber(),
	}
}

// EncodeCombatEvents converts simulation combat events into their wire
// representation.
func EncodeCombatEvents(events []CombatEvent) []WireCombatEvent {
	out := make([]WireCombatEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, WireCombatEvent{
			AttackerID: int(ev.AttackerID), TargetID: int(ev.TargetID),
			AttackType: ev.DamageType.String(),
			StartX: ev.AttackerPos.X, StartY: ev.AttackerPos.Y,
			EndX: ev.TargetPos.X, EndY: ev.TargetPos.Y,
		})
	}
	return out
}
