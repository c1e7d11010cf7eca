package game

import "testing"

type noopHub struct{}

func (noopHub) Publish(int, OutboundMessage) {}

func newTestLobby() *Lobby {
	l := NewLobby(0, noopHub{}, nil)
	l.AddPlayer(&Player{ID: 1, Username: "a", Gold: 100})
	return l
}

func TestPlaceWrongPhase(t *testing.T) {
	l := newTestLobby()
	l.phase = PhaseCombat
	errMsg := l.Place(1, ShapeSquare, 1, 1)
	want := "Tower placement is only allowed during the build phase."
	if errMsg != want {
		t.Errorf("Place error = %q, want %q", errMsg, want)
	}
	if l.roster[0].Gold != 100 {
		t.Errorf("gold changed on rejected place: %d", l.roster[0].Gold)
	}
	if len(l.world.Entities()) != 0 {
		t.Error("rejected place should not spawn a unit")
	}
}

func TestPlaceInsufficientGold(t *testing.T) {
	l := newTestLobby()
	l.roster[0].Gold = 10
	errMsg := l.Place(1, ShapeSquare, 1, 1)
	want := "Insufficient gold for Square (cost: 25)"
	if errMsg != want {
		t.Errorf("Place error = %q, want %q", errMsg, want)
	}
	if l.roster[0].Gold != 10 {
		t.Errorf("gold changed on rejected place: %d", l.roster[0].Gold)
	}
}

func TestPlaceAndSellRoundTrip(t *testing.T) {
	l := newTestLobby()
	if errMsg := l.Place(1, ShapeSquare, 1, 1); errMsg != "" {
		t.Fatalf("unexpected place error: %q", errMsg)
	}
	if l.roster[0].Gold != 75 {
		t.Fatalf("gold after place = %d, want 75", l.roster[0].Gold)
	}
	entities := l.world.Entities()
	if len(entities) != 1 {
		t.Fatalf("expected 1 unit after place, got %d", len(entities))
	}
	pos := l.world.Get(entities[0]).position
	if pos.X != 90 || pos.Y != 90 {
		t.Errorf("spawn position = %+v, want {90 90}", pos)
	}

	if errMsg := l.SellByID(1, entities[0]); errMsg != "" {
		t.Fatalf("unexpected sell error: %q", errMsg)
	}
	if l.roster[0].Gold != 93 {
		t.Errorf("gold after sell = %d, want 93 (75 + floor(25*0.75))", l.roster[0].Gold)
	}
	if len(l.world.Entities()) != 0 {
		t.Error("sold unit should be despawned")
	}
}

func TestWaveClearAdvancesAndPaysBonus(t *testing.T) {
	l := newTestLobby()
	l.AddPlayer(&Player{ID: 2, Username: "b", Gold: 100})
	l.phase = PhaseCombat
	l.waveNumber = 1

	l.Tick(TickDelta)

	if l.phase != PhaseBuild {
		t.Errorf("phase = %v, want Build", l.phase)
	}
	if l.waveNumber != 2 {
		t.Errorf("waveNumber = %d, want 2", l.waveNumber)
	}
	if l.phaseTimer != BuildPhaseSeconds {
		t.Errorf("phaseTimer = %v, want %v", l.phaseTimer, BuildPhaseSeconds)
	}
	for _, p := range l.roster {
		if p.Gold != 150 {
			t.Errorf("player %d gold = %d, want 150", p.ID, p.Gold)
		}
	}
}

func TestWaveSixClearTriggersVictory(t *testing.T) {
	l := newTestLobby()
	l.phase = PhaseCombat
	l.waveNumber = FinalWave

	l.Tick(TickDelta)

	if l.phase != PhaseVictory {
		t.Errorf("phase = %v, want Victory", l.phase)
	}
}

func TestHireWorkerAnyPhase(t *testing.T) {
	l := newTestLobby()
	l.phase = PhaseCombat
	if errMsg := l.HireWorker(1); errMsg != "" {
		t.Fatalf("unexpected hire error: %q", errMsg)
	}
	if l.roster[0].Gold != 50 {
		t.Errorf("gold after hire = %d, want 50", l.roster[0].Gold)
	}
}
