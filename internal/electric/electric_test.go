package electric

import "testing"

func TestAmperageToWatts_ThreePhaseAC(t *testing.T) {
	got := AmperageToWatts(CurrentTypeAC, 10, 230, 3)
	want := 6900.0
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestAmperageToWatts_DC(t *testing.T) {
	got := AmperageToWatts(CurrentTypeDC, 100, 400, 3)
	want := 40000.0
	if got != want {
		t.Fatalf("got %v want %v (phases must be ignored for DC)", got, want)
	}
}

func TestWattsToAmperage_RoundTrip(t *testing.T) {
	watts := AmperageToWatts(CurrentTypeAC, 16, 230, 3)
	amps := WattsToAmperage(CurrentTypeAC, watts, 230, 3)
	if amps < 15.999 || amps > 16.001 {
		t.Fatalf("round trip drifted: %v", amps)
	}
}

func TestWattsToAmperage_ZeroVoltage(t *testing.T) {
	if got := WattsToAmperage(CurrentTypeAC, 1000, 0, 3); got != 0 {
		t.Fatalf("expected 0 for zero voltage, got %v", got)
	}
}
