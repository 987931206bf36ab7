package geo

import "testing"

func TestHaversineKm_IdenticalPoints(t *testing.T) {
	t.Parallel()

	if d := HaversineKm(48.8566, 2.3522, 48.8566, 2.3522); d != 0 {
		t.Fatalf("expected zero distance for identical points, got %f", d)
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	t.Parallel()

	forward := HaversineKm(48.8566, 2.3522, 45.7640, 4.8357)
	backward := HaversineKm(45.7640, 4.8357, 48.8566, 2.3522)
	if forward != backward {
		t.Fatalf("expected symmetric distance, got %f and %f", forward, backward)
	}
}

func TestHaversineKm_ParisLyon(t *testing.T) {
	t.Parallel()

	// Paris to Lyon is roughly 392 km great-circle.
	d := HaversineKm(48.8566, 2.3522, 45.7640, 4.8357)
	if d < 385 || d > 400 {
		t.Fatalf("unexpected Paris-Lyon distance: got %f want ~392", d)
	}
}

func TestHaversineKm_ParisVersailles(t *testing.T) {
	t.Parallel()

	d := HaversineKm(48.8566, 2.3522, 48.8049, 2.1204)
	if d < 15 || d > 20 {
		t.Fatalf("unexpected Paris-Versailles distance: got %f want ~18", d)
	}
}
