package game

import "math"

// CombatEvent is one resolved attack, emitted by processCombat for the
// snapshot encoder to fan out as a CombatEvents message.
type CombatEvent struct {
	AttackerID   Entity
	TargetID     Entity
	DamageType   DamageType
	AttackerPos  Vec2
	TargetPos    Vec2
}

// boardOf returns 0 for the left board, 1 for the right board, -1 when x
// falls in neither (spec §4.3 S1).
func boardOf(x float64) int {
	switch {
	case x < LeftBoardEnd:
		return 0
	case x >= RightBoardStart && x < RightBoardEnd:
		return 1
	default:
		return -1
	}
}

func distSq(a, b Vec2) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// updateTargeting is S1: clears stale targets, then assigns nearest-enemy
// targets to units and nearest-unit targets to enemies, never crossing
// boards and never touching workers in either direction.
func updateTargeting(w *World) {
	entities := w.Entities()

	for _, e := range entities {
		c := w.Get(e)
		if c.target == nil {
			continue
		}
		tgt := *c.target
		tc := w.Get(tgt)
		if tc == nil || tc.position == nil || c.position == nil || boardOf(tc.position.X) != boardOf(c.position.X) {
			c.target = nil
		}
	}

	assignNearest := func(holder Entity, wantEnemy bool) {
		hc := w.Get(holder)
		if hc == nil || hc.target != nil || hc.position == nil {
			return
		}
		board := boardOf(hc.position.X)
		if board == -1 {
			return
		}
		var best Entity
		found := false
		bestDist := math.Inf(1)
		for _, cand := range entities {
			if cand == holder {
				continue
			}
			cc := w.Get(cand)
			if cc == nil || cc.position == nil || cc.worker {
				continue
			}
			if wantEnemy && !cc.enemy {
				continue
			}
			if !wantEnemy && cc.enemy {
				continue
			}
			if boardOf(cc.position.X) != board {
				continue
			}
			d := distSq(*hc.position, *cc.position)
			if !found || d < bestDist {
				found = true
				bestDist = d
				best = cand
			}
		}
		if found {
			hc.target = &best
		}
	}

	for _, e := range entities {
		c := w.Get(e)
		if c.enemy || c.worker || c.target != nil {
			continue
		}
		assignNearest(e, true)
	}
	for _, e := range entities {
		c := w.Get(e)
		if !c.enemy || c.target != nil {
			continue
		}
		assignNearest(e, false)
	}
}

// updateActiveCombatStats is S2: chooses primary vs. secondary based on
// mana affordability and writes the result into AttackStats/AttackRange.
func updateActiveCombatStats(w *World) {
	for _, e := range w.Entities() {
		c := w.Get(e)
		if c.primary == nil {
			continue
		}
		selected := c.primary
		if selected.ManaCost > 0 {
			affordable := c.mana != nil && c.mana.Current >= selected.ManaCost
			if !affordable && c.secondary != nil {
				selected = c.secondary
			} else if !affordable {
				selected = c.primary
			}
		}
		if c.attackStats == nil {
			c.attackStats = &AttackStats{}
		}
		c.attackStats.Damage = selected.Damage
		c.attackStats.Rate = selected.Rate
		c.attackStats.DamageType = selected.DamageType
		if c.attackRange == nil {
			c.attackRange = new(float64)
		}
		*c.attackRange = selected.Range
		if selected.ManaCost > 0 {
			cost := selected.ManaCost
			c.attackManaCost = &cost
		} else {
			c.attackManaCost = nil
		}
	}
}

func clampBoard(x float64, home float64, radius float64) float64 {
	if boardOf(home) == 1 {
		lo, hi := RightBoardStart+radius, RightBoardEnd-radius
		return math.Min(math.Max(x, lo), hi)
	}
	lo, hi := radius, LeftBoardEnd-radius
	return math.Min(math.Max(x, lo), hi)
}

// updateCombatMovement is S3: seek-toward-target plus pairwise separation,
// clamped into the entity's home board and the shared vertical bounds.
func updateCombatMovement(w *World, dt float64) {
	entities := w.Entities()
	type moved struct {
		e             Entity
		pos           Vec2
		inAttackRange bool
	}
	results := make([]moved, 0, len(entities))

	for _, e := range entities {
		c := w.Get(e)
		if c.worker || c.position == nil || c.collisionR == nil {
			continue
		}
		var vel Vec2
		inRange := false

		if c.target != nil {
			if tc := w.Get(*c.target); tc != nil && tc.position != nil {
				dx, dy := tc.position.X-c.position.X, tc.position.Y-c.position.Y
				d := math.Sqrt(dx*dx + dy*dy)
				attackRange := DefaultAttackRange
				if c.attackRange != nil {
					attackRange = *c.attackRange
				}
				if d > attackRange {
					if d > 0 {
						vel.X += dx / d * CombatSpeed
						vel.Y += dy / d * CombatSpeed
					}
				} else {
					inRange = true
				}
			}
		}

		for _, other := range entities {
			if other == e {
				continue
			}
			oc := w.Get(other)
			if oc == nil || oc.worker || oc.position == nil || oc.collisionR == nil {
				continue
			}
			dx, dy := c.position.X-oc.position.X, c.position.Y-oc.position.Y
			d := math.Sqrt(dx*dx + dy*dy)
			minDist := *c.collisionR + *oc.collisionR
			if d < minDist {
				if d > 0 {
					vel.X += dx / d * CombatSpeed
					vel.Y += dy / d * CombatSpeed
				} else {
					angle := float64(e) * 0.1
					vel.X += math.Cos(angle) * CombatSpeed
					vel.Y += math.Sin(angle) * CombatSpeed
				}
			}
		}

		next := Vec2{
			X: c.position.X + vel.X*dt,
			Y: c.position.Y + vel.Y*dt,
		}
		home := c.position.X
		if c.homePosition != nil {
			home = c.homePosition.X
		}
		next.X = clampBoard(next.X, home, *c.collisionR)
		next.Y = math.Min(math.Max(next.Y, *c.collisionR), TotalHeight-*c.collisionR)
		results = append(results, moved{e: e, pos: next, inAttackRange: inRange})
	}

	for _, r := range results {
		c := w.Get(r.e)
		if c == nil {
			continue
		}
		c.position = &Vec2{X: r.pos.X, Y: r.pos.Y}
		c.inAttackRange = r.inAttackRange
	}
}

// updateMana is S4.
func updateMana(w *World, dt float64) {
	for _, e := range w.Entities() {
		c := w.Get(e)
		if c.mana == nil {
			continue
		}
		c.mana.Current = math.Min(c.mana.Max, c.mana.Current+c.mana.Regen*dt)
	}
}

// processCombat is S5: resolves attack timers, deducts mana, applies
// damage, and returns the combat events fired this tick.
func processCombat(w *World, dt float64) []CombatEvent {
	var events []CombatEvent
	for _, e := range w.Entities() {
		c := w.Get(e)
		if c.attackStats == nil || c.attackTimer == nil {
			continue
		}
		newTimer := math.Max(0, *c.attackTimer-dt)

		if c.inAttackRange && newTimer <= 0 && c.target != nil {
			tc := w.Get(*c.target)
			if tc != nil && tc.position != nil && c.position != nil {
				if c.attackManaCost != nil && c.mana != nil {
					c.mana.Current -= *c.attackManaCost
				}
				events = append(events, CombatEvent{
					AttackerID:  e,
					TargetID:    *c.target,
					DamageType:  c.attackStats.DamageType,
					AttackerPos: *c.position,
					TargetPos:   *tc.position,
				})
				if tc.health != nil {
					tc.health.Current -= c.attackStats.Damage
				}
				rate := c.attackStats.Rate
				if rate <= 0 {
					rate = DefaultAttackRate
				}
				newTimer = 1.0 / rate
			}
		}
		*c.attackTimer = newTimer
	}
	return events
}

// cleanupDeadEntities is S6.
func cleanupDeadEntities(w *World) {
	for _, e := range w.Entities() {
		c := w.Get(e)
		if c.health != nil && c.health.Current <= 0 {
			w.Despawn(e)
		}
	}
}

// updateCombatReset is S7: restores every entity homed on an enemy-free
// board to full health/mana at its spawn position.
func updateCombatReset(w *World) {
	entities := w.Entities()
	enemyOnBoard := map[int]bool{}
	for _, e := range entities {
		c := w.Get(e)
		if c.enemy && c.position != nil {
			enemyOnBoard[boardOf(c.position.X)] = true
		}
	}
	for _, board := range []int{0, 1} {
		if enemyOnBoard[board] {
			continue
		}
		for _, e := range entities {
			c := w.Get(e)
			if c.homePosition == nil || boardOf(c.homePosition.X) != board {
				continue
			}
			c.position = &Vec2{X: c.homePosition.X, Y: c.homePosition.Y}
			if c.health != nil {
				c.health.Current = c.health.Max
			}
			if c.mana != nil {
				c.mana.Current = c.mana.Max
			}
		}
	}
}

// updateWorkers is S8. Skipped entirely during Build phase by the caller.
// creditGold is invoked once per completed deposit cycle.
func updateWorkers(w *World, dt float64, creditGold func(playerID int, amount int)) {
	for _, e := range w.Entities() {
		c := w.Get(e)
		if !c.worker || c.workerState == nil || c.position == nil {
			continue
		}
		switch *c.workerState {
		case WorkerMovingToVein:
			if c.veinTarget == nil {
				continue
			}
			if moveToward(c.position, *c.veinTarget, WorkerSpeed, dt) {
				c.position = &Vec2{X: c.veinTarget.X, Y: c.veinTarget.Y}
				*c.workerState = WorkerMining
				t := MiningTime
				c.miningTimer = &t
			}
		case WorkerMining:
			if c.miningTimer == nil {
				continue
			}
			*c.miningTimer -= dt
			if *c.miningTimer <= 0 {
				c.miningTimer = nil
				*c.workerState = WorkerMovingToCart
			}
		case WorkerMovingToCart:
			if c.cartTarget == nil {
				continue
			}
			if moveToward(c.position, *c.cartTarget, WorkerSpeed, dt) {
				c.position = &Vec2{X: c.cartTarget.X, Y: c.cartTarget.Y}
				*c.workerState = WorkerMovingToVein
				if c.playerID != nil && creditGold != nil {
					creditGold(*c.playerID, WorkerDeposit)
				}
			}
		}
	}
}

// moveToward steps pos toward target at speed px/s; returns true once it
// has arrived (within one tick's travel of the target).
func moveToward(pos *Vec2, target Vec2, speed, dt float64) bool {
	dx, dy := target.X-pos.X, target.Y-pos.Y
	d := math.Sqrt(dx*dx + dy*dy)
	step := speed * dt
	if d <= step {
		return true
	}
	pos.X += dx / d * step
	pos.Y += dy / d * step
	return false
}
