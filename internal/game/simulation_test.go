package game

import "testing"

func spawnBasic(w *World, pos Vec2, isEnemy, isWorker bool) Entity {
	return w.Spawn(func(c *components) {
		p := pos
		c.position = &p
		home := pos
		c.homePosition = &home
		c.enemy = isEnemy
		c.worker = isWorker
		if !isWorker {
			r := DefaultCollisionRadius
			c.collisionR = &r
			rng := DefaultAttackRange
			c.attackRange = &rng
			c.health = &Health{Current: DefaultHealth, Max: DefaultHealth}
		}
	})
}

func TestTargetingIgnoresWorkers(t *testing.T) {
	w := NewWorld()
	enemy := spawnBasic(w, Vec2{X: 100, Y: 100}, true, false)
	worker := w.Spawn(func(c *components) {
		p := Vec2{X: 110, Y: 100}
		c.position = &p
		c.worker = true
	})
	square := spawnBasic(w, Vec2{X: 200, Y: 200}, false, false)

	updateTargeting(w)

	if tc := w.Get(worker); tc.target != nil {
		t.Error("worker should never acquire a target")
	}
	sc := w.Get(square)
	if sc.target == nil || *sc.target != enemy {
		t.Errorf("square target = %v, want enemy %v", sc.target, enemy)
	}
	ec := w.Get(enemy)
	if ec.target == nil || *ec.target != square {
		t.Errorf("enemy target = %v, want square %v (not worker)", ec.target, square)
	}
}

func TestMageManaExhaustionSwitchesAttack(t *testing.T) {
	w := NewWorld()
	profile := UnitProfileFor(ShapeCircle)
	target := w.Spawn(func(c *components) {
		p := Vec2{X: 0, Y: 0}
		c.position = &p
		c.health = &Health{Current: 100, Max: 100}
	})
	mage := w.Spawn(func(c *components) {
		p := Vec2{X: 10, Y: 0}
		c.position = &p
		c.mana = &Mana{Current: 20, Max: 100, Regen: 0}
		pr := profile.Primary
		c.primary = &pr
		sec := *profile.Secondary
		c.secondary = &sec
		r := profile.Radius
		c.collisionR = &r
		tgt := target
		c.target = &tgt
		c.inAttackRange = true
		timer := 0.0
		c.attackTimer = &timer
	})

	updateActiveCombatStats(w)
	events := processCombat(w, 0.1)
	if len(events) != 1 {
		t.Fatalf("expected 1 combat event, got %d", len(events))
	}
	if events[0].DamageType != DamageFireMagical {
		t.Errorf("first attack type = %v, want FireMagical", events[0].DamageType)
	}
	mc := w.Get(mage)
	if mc.mana.Current != 0 {
		t.Errorf("mana after fireball = %v, want 0", mc.mana.Current)
	}
	tc := w.Get(target)
	if tc.health.Current != 90 {
		t.Errorf("target hp = %v, want 90", tc.health.Current)
	}

	*mc.attackTimer = 0
	updateActiveCombatStats(w)
	events = processCombat(w, 0.1)
	if len(events) != 1 {
		t.Fatalf("expected 1 combat event on second tick, got %d", len(events))
	}
	if events[0].DamageType != DamagePhysicalBasic {
		t.Errorf("second attack type = %v, want PhysicalBasic (melee fallback)", events[0].DamageType)
	}
	if mc.attackRange == nil || *mc.attackRange != DefaultAttackRange {
		t.Errorf("attack range after fallback = %v, want %v", mc.attackRange, DefaultAttackRange)
	}
	if tc.health.Current != 88 {
		t.Errorf("target hp after melee = %v, want 88", tc.health.Current)
	}
}

func TestCleanupDeadEntities(t *testing.T) {
	w := NewWorld()
	alive := w.Spawn(func(c *components) { c.health = &Health{Current: 10, Max: 10} })
	dead := w.Spawn(func(c *components) { c.health = &Health{Current: 0, Max: 10} })

	cleanupDeadEntities(w)

	if !w.Contains(alive) {
		t.Error("alive entity should survive cleanup")
	}
	if w.Contains(dead) {
		t.Error("entity at 0 HP should be despawned")
	}
}
