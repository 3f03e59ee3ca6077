package world

import (
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/cordon/internal/geo"
)

func TestCreateAndDelete(t *testing.T) {
	w := NewSim()

	v, err := w.CreateVehicle("police", geo.Vector{X: 1, Y: 2}, 90)
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}
	if w.EntityCount() != 1 {
		t.Fatalf("expected 1 entity, got %d", w.EntityCount())
	}
	if !v.Alive() {
		t.Fatal("fresh vehicle should be alive")
	}
	if v.Kind() != KindVehicle || v.Model() != "police" {
		t.Fatalf("unexpected identity: %v %q", v.Kind(), v.Model())
	}

	w.Delete(v)
	if w.EntityCount() != 0 {
		t.Fatalf("expected empty world, got %d entities", w.EntityCount())
	}
	if v.Alive() {
		t.Fatal("deleted entity still reports alive")
	}

	// Deleting twice is a no-op.
	w.Delete(v)
}

func TestFailNextSpawn(t *testing.T) {
	w := NewSim()
	boom := errors.New("no room")
	w.FailNext(KindVehicle, boom)

	if _, err := w.CreateVehicle("police", geo.Vector{}, 0); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	// Peds are unaffected and the failure is consumed.
	if _, err := w.CreatePed("cop", geo.Vector{}, 0); err != nil {
		t.Fatalf("CreatePed: %v", err)
	}
	if _, err := w.CreateVehicle("police", geo.Vector{}, 0); err != nil {
		t.Fatalf("second CreateVehicle: %v", err)
	}
}

func TestWarpIntoVehicle(t *testing.T) {
	w := NewSim()
	v, _ := w.CreateVehicle("police", geo.Vector{X: 10}, 0)
	ped, _ := w.CreatePed("cop", geo.Vector{}, 0)
	other, _ := w.CreatePed("cop", geo.Vector{}, 0)
	prop, _ := w.CreateProp("cone", geo.Vector{}, 0)

	if err := w.WarpIntoVehicle(ped, v, -1); err != nil {
		t.Fatalf("warp driver: %v", err)
	}
	if err := w.WarpIntoVehicle(other, v, -1); err == nil {
		t.Fatal("expected error for a taken seat")
	}
	if err := w.WarpIntoVehicle(prop, v, 0); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}

	// Seated peds ride along with the vehicle.
	w.MoveEntity(v, geo.Vector{X: 50, Y: 60}, 180)
	if got := ped.Position(); got.X != 50 || got.Y != 60 {
		t.Fatalf("seated ped did not follow vehicle: %v", got)
	}
}

func TestKillPed(t *testing.T) {
	w := NewSim()
	ped, _ := w.CreatePed("cop", geo.Vector{}, 0)
	v, _ := w.CreateVehicle("police", geo.Vector{}, 0)

	w.KillPed(ped)
	if ped.Alive() {
		t.Fatal("killed ped still alive")
	}
	// Kills only apply to peds.
	w.KillPed(v)
	if !v.Alive() {
		t.Fatal("vehicle should not be killable")
	}
	if err := w.WarpIntoVehicle(ped, v, -1); !errors.Is(err, ErrNotAlive) {
		t.Fatalf("expected ErrNotAlive, got %v", err)
	}
}

func TestAnimationLifetime(t *testing.T) {
	current := time.Unix(1000, 0)
	w := NewSim(
		WithNow(func() time.Time { return current }),
		WithAnimationLength(3*time.Second),
	)
	ped, _ := w.CreatePed("cop", geo.Vector{}, 0)

	if err := w.PlayAnimation(ped, "deploy", "plant"); err != nil {
		t.Fatalf("PlayAnimation: %v", err)
	}
	if !w.IsAnimationPlaying(ped, "deploy", "plant") {
		t.Fatal("animation should be playing")
	}
	if w.IsAnimationPlaying(ped, "deploy", "other") {
		t.Fatal("unknown animation reported as playing")
	}

	current = current.Add(4 * time.Second)
	if w.IsAnimationPlaying(ped, "deploy", "plant") {
		t.Fatal("animation should have finished")
	}
}

func TestVehicleLengthFallback(t *testing.T) {
	w := NewSim()
	if got := w.VehicleLength("riot"); got != 7.3 {
		t.Fatalf("riot length %v", got)
	}
	if got := w.VehicleLength("never-heard-of-it"); got != defaultVehicleLength {
		t.Fatalf("fallback length %v", got)
	}
	w.SetVehicleLength("limo", 9.5)
	if got := w.VehicleLength("limo"); got != 9.5 {
		t.Fatalf("registered length %v", got)
	}
}

func TestSpeedZonesAndMarkers(t *testing.T) {
	w := NewSim()

	zone := w.CreateSpeedZone(geo.Vector{X: 5}, 40, 10)
	marker := w.CreateMarker(geo.Vector{X: 5}, "roadblock")
	if len(w.SpeedZones()) != 1 || len(w.Markers()) != 1 {
		t.Fatalf("zones %d markers %d", len(w.SpeedZones()), len(w.Markers()))
	}

	w.DeleteSpeedZone(zone)
	w.DeleteMarker(marker)
	if len(w.SpeedZones()) != 0 || len(w.Markers()) != 0 {
		t.Fatal("zone or marker left behind after delete")
	}
}

func TestPreviewEntitiesTracked(t *testing.T) {
	w := NewSim()

	ghost, err := w.CreatePreview(KindVehicle, "police", geo.Vector{}, 0)
	if err != nil {
		t.Fatalf("CreatePreview: %v", err)
	}
	if _, err := w.CreateVehicle("police", geo.Vector{}, 0); err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}
	if w.PreviewCount() != 1 {
		t.Fatalf("preview count %d, want 1", w.PreviewCount())
	}

	w.Delete(ghost)
	if w.PreviewCount() != 0 {
		t.Fatalf("preview count %d after delete, want 0", w.PreviewCount())
	}
	if w.EntityCount() != 1 {
		t.Fatalf("real entity should survive, have %d", w.EntityCount())
	}
}

func TestTakeoverSeatsCrew(t *testing.T) {
	w := NewSim()
	v, _ := w.CreateVehicle("police", geo.Vector{X: 3}, 0)
	driver, _ := w.CreatePed("cop", geo.Vector{}, 0)
	partner, _ := w.CreatePed("cop", geo.Vector{}, 0)

	if err := w.WarpIntoVehicle(driver, v, -1); err != nil {
		t.Fatalf("warp driver: %v", err)
	}

	w.Takeover([]Entity{driver, partner}, v)

	if !w.InPursuit(driver) || !w.InPursuit(partner) {
		t.Fatal("both cops should be in pursuit")
	}
	if got := partner.(*SimEntity).InVehicle(); got != v.ID() {
		t.Fatalf("partner not seated, in vehicle %d", got)
	}
}
