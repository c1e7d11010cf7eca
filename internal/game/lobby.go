package game

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

// GamePhase is the lobby's current wave-cycle stage.
type GamePhase int

const (
	PhaseBuild GamePhase = iota
	PhaseCombat
	PhaseVictory
)

func (p GamePhase) String() string {
	switch p {
	case PhaseBuild:
		return "Build"
	case PhaseCombat:
		return "Combat"
	case PhaseVictory:
		return "Victory"
	default:
		return "Unknown"
	}
}

// Player is a lobby roster entry. It is not a World entity.
type Player struct {
	ID       int
	Username string
	Gold     int
}

// Broadcaster is the narrow publish surface a Lobby needs from its
// transport layer; the session package supplies the concrete hub.
type Broadcaster interface {
	Publish(lobbyID int, payload OutboundMessage)
}

// Lobby owns one World, its roster, and the wave/phase state machine. All
// mutation — tick systems and command handlers alike — happens while mu is
// held, per the single-exclusive-writer concurrency model.
type Lobby struct {
	mu sync.Mutex

	ID         int
	world      *World
	roster     []*Player
	phase      GamePhase
	phaseTimer float64
	waveNumber int

	hub Broadcaster
	log *zap.Logger
}

// NewLobby constructs an empty lobby in its initial Build state.
func NewLobby(id int, hub Broadcaster, log *zap.Logger) *Lobby {
	return &Lobby{
		ID:         id,
		world:      NewWorld(),
		phase:      PhaseBuild,
		phaseTimer: BuildPhaseSeconds,
		waveNumber: 1,
		hub:        hub,
		log:        log,
	}
}

// WithExclusive runs f while holding the lobby's lock. Every command
// handler and the TickDriver call into the lobby only through this.
func (l *Lobby) WithExclusive(f func(*Lobby)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f(l)
}

// PlayerCount reports the current roster size. Safe to call without
// WithExclusive for status purposes; callers needing a mutation-consistent
// read should go through WithExclusive.
func (l *Lobby) PlayerCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.roster)
}

func (l *Lobby) slotOf(playerID int) int {
	for i, p := range l.roster {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (l *Lobby) playerByID(playerID int) *Player {
	for _, p := range l.roster {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// AddPlayer appends a player to the roster. Call only through
// WithExclusive. Returns false if the roster is already full.
func (l *Lobby) AddPlayer(p *Player) bool {
	if len(l.roster) >= 2 {
		return false
	}
	l.roster = append(l.roster, p)
	return true
}

// IsFull reports whether the roster has reached its two-seat capacity.
func (l *Lobby) IsFull() bool {
	return len(l.roster) >= 2
}

// RemovePlayer despawns every entity owned by playerID and drops them from
// the roster. If the roster becomes empty the world and phase reset.
func (l *Lobby) RemovePlayer(playerID int) {
	for _, e := range l.world.Entities() {
		c := l.world.Get(e)
		if c.playerID != nil && *c.playerID == playerID {
			l.world.Despawn(e)
		}
	}
	for i, p := range l.roster {
		if p.ID == playerID {
			l.roster = append(l.roster[:i], l.roster[i+1:]...)
			break
		}
	}
	if len(l.roster) == 0 {
		l.world.Reset()
		l.phase = PhaseBuild
		l.phaseTimer = BuildPhaseSeconds
		l.waveNumber = 1
	}
}

// Place handles a placement command. Returns "" on success or the
// wire-visible error message to send back to the originating client.
func (l *Lobby) Place(playerID int, shape Shape, row, col int) string {
	if l.phase != PhaseBuild {
		return "Tower placement is only allowed during the build phase."
	}
	if row < 0 || row >= BoardGridCells || col < 0 || col >= BoardGridCells {
		return "Placement coordinates are out of bounds."
	}
	slot := l.slotOf(playerID)
	if slot == -1 {
		return "You are not in this lobby."
	}
	player := l.roster[slot]
	profile := UnitProfileFor(shape)
	if player.Gold < profile.GoldCost {
		return fmt.Sprintf("Insufficient gold for %s (cost: %d)", shape, profile.GoldCost)
	}
	player.Gold -= profile.GoldCost

	pos := Vec2{X: BoardXForCell(slot, col), Y: BoardYForCell(row)}
	pid := playerID
	l.spawnCombatUnit(shape, profile, pos, &pid, false, false, 1.0, 1.0)
	return ""
}

// SellByID handles a sell command. Selling a non-existent or non-owned
// entity is silently ignored, per the spec's ownership error taxonomy.
func (l *Lobby) SellByID(playerID int, entityID Entity) string {
	if l.phase != PhaseBuild {
		return "Selling is only allowed during the build phase."
	}
	if !l.world.Contains(entityID) {
		return ""
	}
	c := l.world.Get(entityID)
	if c.playerID == nil || *c.playerID != playerID || c.worker {
		return ""
	}
	shape := ShapeSquare
	if c.shape != nil {
		shape = *c.shape
	}
	refund := int(math.Floor(float64(UnitProfileFor(shape).GoldCost) * SellRefundRatio))
	if player := l.playerByID(playerID); player != nil {
		player.Gold += refund
	}
	l.world.Despawn(entityID)
	return ""
}

// HireWorker spawns a worker for playerID at their cart anchor, debiting
// the fixed hire cost. Allowed in any phase (SPEC_FULL open-question
// decision).
func (l *Lobby) HireWorker(playerID int) string {
	slot := l.slotOf(playerID)
	if slot == -1 {
		return "You are not in this lobby."
	}
	player := l.roster[slot]
	if player.Gold < WorkerHireCost {
		return fmt.Sprintf("Insufficient gold for a worker (cost: %d)", WorkerHireCost)
	}
	player.Gold -= WorkerHireCost
	l.spawnWorker(playerID, slot)
	return ""
}

// UnitInfo is the read-only projection returned by RequestUnitInfo.
type UnitInfo struct {
	Damage     float64
	Rate       float64
	Range      float64
	DamageType DamageType
	Armor      float64
	IsBoss     bool
	SellValue  *int // nil unless the requester owns the unit and it is not a worker
}

// RequestUnitInfo is a read-only query; it never mutates lobby state.
func (l *Lobby) RequestUnitInfo(playerID int, entityID Entity) (UnitInfo, bool) {
	if !l.world.Contains(entityID) {
		return UnitInfo{}, false
	}
	c := l.world.Get(entityID)
	info := UnitInfo{IsBoss: c.boss}
	if c.attackStats != nil {
		info.Damage = c.attackStats.Damage
		info.Rate = c.attackStats.Rate
		info.DamageType = c.attackStats.DamageType
	}
	if c.attackRange != nil {
		info.Range = *c.attackRange
	}
	if c.defense != nil {
		info.Armor = c.defense.Armor
	}
	if !c.worker && c.playerID != nil && *c.playerID == playerID && c.shape != nil {
		refund := int(math.Floor(float64(UnitProfileFor(*c.shape).GoldCost) * SellRefundRatio))
		info.SellValue = &refund
	}
	return info, true
}

// SkipToCombat forces the Build phase timer to expire on the next tick.
func (l *Lobby) SkipToCombat() {
	if l.phase == PhaseBuild {
		l.phaseTimer = 0
	}
}

// Phase, WaveNumber, and Roster are read accessors used by the snapshot
// encoder; callers must already hold the lobby (via WithExclusive).
func (l *Lobby) Phase() GamePhase   { return l.phase }
func (l *Lobby) WaveNumber() int    { return l.waveNumber }
func (l *Lobby) PhaseTimer() float64 { return l.phaseTimer }
func (l *Lobby) Roster() []*Player  { return l.roster }
func (l *Lobby) World() *World      { return l.world }

// BroadcastGamestate encodes the current state and publishes it.
func (l *Lobby) BroadcastGamestate() {
	if l.hub == nil {
		return
	}
	l.hub.Publish(l.ID, OutboundMessage{Type: OutboundGameState, Data: EncodeSnapshot(l)})
}

// BroadcastMessage publishes an arbitrary outbound message, e.g. combat
// events produced by the same tick's system chain.
func (l *Lobby) BroadcastMessage(msg OutboundMessage) {
	if l.hub == nil {
		return
	}
	l.hub.Publish(l.ID, msg)
}

func (l *Lobby) spawnCombatUnit(shape Shape, profile UnitProfile, pos Vec2, playerID *int, isEnemy, isBoss bool, healthScale, damageScale float64) Entity {
	health := DefaultHealth * healthScale
	primary := profile.Primary
	primary.Damage *= damageScale
	var secondary *CombatProfile
	if profile.Secondary != nil {
		s := *profile.Secondary
		s.Damage *= damageScale
		secondary = &s
	}
	var mana *Mana
	if profile.Mana != nil {
		m := *profile.Mana
		mana = &m
	}
	home := pos
	return l.world.Spawn(func(c *components) {
		p := pos
		c.position = &p
		c.homePosition = &home
		sh := shape
		c.shape = &sh
		c.playerID = playerID
		c.enemy = isEnemy
		c.boss = isBoss
		r := profile.Radius
		c.collisionR = &r
		ar := primary.Range
		c.attackRange = &ar
		c.health = &Health{Current: health, Max: health}
		c.mana = mana
		c.attackStats = &AttackStats{Damage: primary.Damage, Rate: primary.Rate, DamageType: primary.DamageType}
		timer := 0.0
		c.attackTimer = &timer
		pr := primary
		c.primary = &pr
		c.secondary = secondary
		c.defense = &DefenseStats{}
	})
}

// Tick runs one 30Hz step of the simulation for the lobby's current phase
// (spec §4.3 S1-S9) and returns any combat events fired this tick. Callers
// must already hold the lobby (via WithExclusive).
func (l *Lobby) Tick(dt float64) []CombatEvent {
	switch l.phase {
	case PhaseBuild:
		l.runBuildPhase(dt)
		return nil
	case PhaseCombat:
		return l.runCombatPhase(dt)
	case PhaseVictory:
		l.runVictoryPhase(dt)
		return nil
	default:
		return nil
	}
}

func (l *Lobby) hasWorkers() bool {
	for _, e := range l.world.Entities() {
		if l.world.Get(e).worker {
			return true
		}
	}
	return false
}

func (l *Lobby) runBuildPhase(dt float64) {
	if l.IsFull() && !l.hasWorkers() {
		for slot := range l.roster {
			for i := 0; i < 3; i++ {
				l.spawnWorker(l.roster[slot].ID, slot)
			}
		}
	}
	l.phaseTimer -= dt
	if l.phaseTimer <= 0 {
		l.phase = PhaseCombat
		l.spawnWave()
	}
}

func (l *Lobby) spawnWave() {
	cfg := WaveConfigFor(l.waveNumber)
	scale := ScalingMultiplier(l.waveNumber)
	for slot := range l.roster {
		anchors := EnemySpawnAnchors(slot)
		for i, shape := range cfg.Enemies {
			profile := UnitProfileFor(shape)
			pos := anchors[i%2]
			healthScale, damageScale := scale, scale
			if cfg.IsBoss {
				healthScale *= BossHealthMultiplier
				damageScale *= BossDamageMultiplier
			}
			l.spawnCombatUnit(shape, profile, pos, nil, true, cfg.IsBoss, healthScale, damageScale)
		}
	}
}

func (l *Lobby) runCombatPhase(dt float64) []CombatEvent {
	updateTargeting(l.world)
	updateActiveCombatStats(l.world)
	updateCombatMovement(l.world, dt)
	updateMana(l.world, dt)
	events := processCombat(l.world, dt)
	cleanupDeadEntities(l.world)
	updateCombatReset(l.world)
	updateWorkers(l.world, dt, l.creditGold)

	if !l.anyEnemyAlive() {
		if l.waveNumber >= FinalWave {
			l.phase = PhaseVictory
		} else {
			l.waveNumber++
			l.phase = PhaseBuild
			l.phaseTimer = BuildPhaseSeconds
			for _, p := range l.roster {
				p.Gold += WaveGoldBonus
			}
		}
	}
	return events
}

func (l *Lobby) runVictoryPhase(dt float64) {
	updateWorkers(l.world, dt, l.creditGold)
}

func (l *Lobby) anyEnemyAlive() bool {
	for _, e := range l.world.Entities() {
		if l.world.Get(e).enemy {
			return true
		}
	}
	return false
}

func (l *Lobby) creditGold(playerID int, amount int) {
	if p := l.playerByID(playerID); p != nil {
		p.Gold += amount
	}
}

func (l *Lobby) spawnWorker(playerID, slot int) Entity {
	cart := CartPosition(slot)
	vein := VeinPosition(slot)
	pid := playerID
	state := WorkerMovingToVein
	return l.world.Spawn(func(c *components) {
		pos := cart
		c.position = &pos
		c.playerID = &pid
		c.worker = true
		c.workerState = &state
		v := vein
		c.veinTarget = &v
		ct := cart
		c.cartTarget = &ct
	})
}
