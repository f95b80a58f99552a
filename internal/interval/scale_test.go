package interval

import "testing"

func TestRoundTripAllAllowedValues(t *testing.T) {
	t.Parallel()

	for _, mark := range Marks() {
		position, ok := PositionFor(mark.RealMinutes)
		if !ok {
			t.Fatalf("expected position for %d minutes", mark.RealMinutes)
		}
		real, ok := RealFor(position)
		if !ok {
			t.Fatalf("expected real value at position %d", position)
		}
		if real != mark.RealMinutes {
			t.Fatalf("round trip of %d minutes returned %d", mark.RealMinutes, real)
		}
	}
}

func TestPositionForRejectsUnknownValues(t *testing.T) {
	t.Parallel()

	for _, minutes := range []int{0, 2, 7, 45, 90, 1500, -10} {
		if _, ok := PositionFor(minutes); ok {
			t.Fatalf("expected %d minutes to be rejected", minutes)
		}
	}
}

func TestRealForRejectsIntermediatePositions(t *testing.T) {
	t.Parallel()

	if _, ok := RealFor(12); ok {
		t.Fatal("expected position 12 to be rejected")
	}
	if _, ok := RealFor(-1); ok {
		t.Fatal("expected position -1 to be rejected")
	}
}

func TestLabels(t *testing.T) {
	t.Parallel()

	label, ok := LabelFor(25)
	if !ok || label != "30 mins" {
		t.Fatalf("expected label \"30 mins\" at position 25, got %q (ok=%v)", label, ok)
	}
	short, ok := ShortLabelFor(80)
	if !ok || short != "1d" {
		t.Fatalf("expected short label \"1d\" at position 80, got %q (ok=%v)", short, ok)
	}
}

func TestNextPrevClampAtScaleEnds(t *testing.T) {
	t.Parallel()

	if got := Next(4320); got != 4320 {
		t.Fatalf("expected Next to clamp at 4320, got %d", got)
	}
	if got := Prev(1); got != 1 {
		t.Fatalf("expected Prev to clamp at 1, got %d", got)
	}
	if got := Next(10); got != 30 {
		t.Fatalf("expected Next(10)=30, got %d", got)
	}
	if got := Prev(60); got != 30 {
		t.Fatalf("expected Prev(60)=30, got %d", got)
	}
}

func TestFormatUsesLargestWholeUnit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		minutes int
		want    string
	}{
		{1500, "1 day"},
		{90, "1 hour"},
		{45, "45 minutes"},
		{2880, "2 days"},
		{1, "1 minute"},
		{60, "1 hour"},
		{120, "2 hours"},
		{1440, "1 day"},
	}
	for _, tc := range cases {
		if got := Format(tc.minutes); got != tc.want {
			t.Fatalf("Format(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}
