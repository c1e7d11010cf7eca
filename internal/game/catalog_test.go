package game

import "testing"

func TestUnitProfileFor(t *testing.T) {
	tests := []struct {
		name     string
		shape    Shape
		wantCost int
		wantMana bool
	}{
		{"square", ShapeSquare, 25, false},
		{"triangle", ShapeTriangle, 40, false},
		{"circle", ShapeCircle, 75, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := UnitProfileFor(tt.shape)
			if p.GoldCost != tt.wantCost {
				t.Errorf("GoldCost = %d, want %d", p.GoldCost, tt.wantCost)
			}
			if (p.Mana != nil) != tt.wantMana {
				t.Errorf("Mana present = %v, want %v", p.Mana != nil, tt.wantMana)
			}
		})
	}
}

func TestWaveConfigFor(t *testing.T) {
	tests := []struct {
		wave    int
		count   int
		isBoss  bool
	}{
		{1, 2, false},
		{2, 3, false},
		{3, 3, false},
		{4, 3, false},
		{5, 4, false},
		{6, 1, true},
	}
	for _, tt := range tests {
		cfg := WaveConfigFor(tt.wave)
		if len(cfg.Enemies) != tt.count {
			t.Errorf("wave %d: got %d enemies, want %d", tt.wave, len(cfg.Enemies), tt.count)
		}
		if cfg.IsBoss != tt.isBoss {
			t.Errorf("wave %d: IsBoss = %v, want %v", tt.wave, cfg.IsBoss, tt.isBoss)
		}
	}
}

func TestScalingMultiplier(t *testing.T) {
	if got := ScalingMultiplier(1); got != 1.0 {
		t.Errorf("ScalingMultiplier(1) = %v, want 1.0", got)
	}
	got := ScalingMultiplier(6)
	want := 1.2 * 1.2 * 1.2 * 1.2 * 1.2
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("ScalingMultiplier(6) = %v, want %v", got, want)
	}
}
