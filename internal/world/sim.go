package world

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vovakirdan/cordon/internal/geo"
)

var (
	// ErrNotAlive is returned when an operation targets a dead or
	// deleted entity.
	ErrNotAlive = errors.New("world: entity is not alive")

	// ErrWrongKind is returned when an entity of the wrong kind is
	// passed, for example warping a prop into a vehicle.
	ErrWrongKind = errors.New("world: wrong entity kind")
)

const (
	defaultVehicleLength   = 5.0
	defaultAnimationLength = 2 * time.Second
	driverSeat             = -1
	maxPassengerSeats      = 3
)

// SpeedZone is an active speed restriction around a position.
type SpeedZone struct {
	ID       int64
	Position geo.Vector
	Radius   float64
	Limit    float64
}

// Marker is a map marker placed at a position.
type Marker struct {
	ID       int64
	Position geo.Vector
	Label    string
}

// SimEntity is the in-process Entity implementation. All mutation goes
// through SimWorld; reads are safe from any goroutine.
type SimEntity struct {
	mu      sync.RWMutex
	id      int64
	kind    EntityKind
	model   string
	pos     geo.Vector
	heading float64
	alive   bool
	removed bool
	preview bool
	vehicle int64 // id of the vehicle this ped sits in, 0 if none
}

func (e *SimEntity) ID() int64        { return e.id }
func (e *SimEntity) Kind() EntityKind { return e.kind }
func (e *SimEntity) Model() string    { return e.model }

func (e *SimEntity) Position() geo.Vector {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pos
}

func (e *SimEntity) Heading() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.heading
}

func (e *SimEntity) Alive() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.alive && !e.removed
}

// IsPreview reports whether the entity is a non-interactive ghost.
func (e *SimEntity) IsPreview() bool { return e.preview }

// InVehicle returns the id of the vehicle the ped is seated in, or 0.
func (e *SimEntity) InVehicle() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vehicle
}

func (e *SimEntity) String() string {
	return fmt.Sprintf("%s %s #%d", e.kind, e.model, e.id)
}

type animKey struct {
	entity     int64
	dictionary string
	name       string
}

// SimWorld is an in-memory World and Pursuit implementation. It backs
// the dispatch simulator and the TUI, and gives tests full control over
// entity positions, liveness and spawn failures.
type SimWorld struct {
	mu       sync.RWMutex
	nextID   int64
	entities map[int64]*SimEntity
	zones    map[int64]SpeedZone
	markers  map[int64]Marker
	lengths  map[string]float64
	anims    map[animKey]time.Time
	seats    map[int64]map[int]int64 // vehicle id -> seat -> ped id
	crew     map[int64]bool          // ids handed to pursuit
	failNext map[EntityKind]error
	now      func() time.Time
	animLen  time.Duration
}

// SimOption configures a SimWorld.
type SimOption func(*SimWorld)

// WithNow overrides the clock used for animation timing.
func WithNow(now func() time.Time) SimOption {
	return func(w *SimWorld) {
		if now != nil {
			w.now = now
		}
	}
}

// WithAnimationLength overrides how long played animations run.
func WithAnimationLength(d time.Duration) SimOption {
	return func(w *SimWorld) {
		if d > 0 {
			w.animLen = d
		}
	}
}

// NewSim creates an empty simulation world.
func NewSim(opts ...SimOption) *SimWorld {
	w := &SimWorld{
		entities: make(map[int64]*SimEntity),
		zones:    make(map[int64]SpeedZone),
		markers:  make(map[int64]Marker),
		anims:    make(map[animKey]time.Time),
		seats:    make(map[int64]map[int]int64),
		crew:     make(map[int64]bool),
		failNext: make(map[EntityKind]error),
		now:      time.Now,
		animLen:  defaultAnimationLength,
		lengths: map[string]float64{
			"police":     5.0,
			"sheriff":    5.2,
			"policet":    6.1,
			"fbi":        5.0,
			"riot":       7.3,
			"barrier":    1.2,
			"cone":       0.5,
			"spikestrip": 3.0,
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *SimWorld) create(kind EntityKind, model string, position geo.Vector, heading float64, preview bool) (Entity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err, ok := w.failNext[kind]; ok {
		delete(w.failNext, kind)
		return nil, err
	}

	w.nextID++
	e := &SimEntity{
		id:      w.nextID,
		kind:    kind,
		model:   model,
		pos:     position,
		heading: geo.NormalizeHeading(heading),
		alive:   true,
		preview: preview,
	}
	w.entities[e.id] = e
	return e, nil
}

func (w *SimWorld) CreateVehicle(model string, position geo.Vector, heading float64) (Entity, error) {
	return w.create(KindVehicle, model, position, heading, false)
}

func (w *SimWorld) CreatePed(model string, position geo.Vector, heading float64) (Entity, error) {
	return w.create(KindPed, model, position, heading, false)
}

func (w *SimWorld) CreateProp(model string, position geo.Vector, heading float64) (Entity, error) {
	return w.create(KindProp, model, position, heading, false)
}

func (w *SimWorld) CreatePreview(kind EntityKind, model string, position geo.Vector, heading float64) (Entity, error) {
	return w.create(kind, model, position, heading, true)
}

func (w *SimWorld) Delete(e Entity) {
	if e == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	se, ok := w.entities[e.ID()]
	if !ok {
		return
	}
	se.mu.Lock()
	se.removed = true
	se.mu.Unlock()
	delete(w.entities, e.ID())
	delete(w.seats, e.ID())
}

func (w *SimWorld) WarpIntoVehicle(ped, vehicle Entity, seat int) error {
	if ped == nil || vehicle == nil {
		return ErrNotAlive
	}
	if ped.Kind() != KindPed || vehicle.Kind() != KindVehicle {
		return ErrWrongKind
	}
	if !ped.Alive() || !vehicle.Alive() {
		return ErrNotAlive
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seats, ok := w.seats[vehicle.ID()]
	if !ok {
		seats = make(map[int]int64)
		w.seats[vehicle.ID()] = seats
	}
	if occupant, taken := seats[seat]; taken && occupant != ped.ID() {
		return fmt.Errorf("world: seat %d of %v is taken", seat, vehicle)
	}
	seats[seat] = ped.ID()

	if se, ok := w.entities[ped.ID()]; ok {
		se.mu.Lock()
		se.vehicle = vehicle.ID()
		se.pos = vehicle.Position()
		se.mu.Unlock()
	}
	return nil
}

func (w *SimWorld) PlayAnimation(e Entity, dictionary, name string) error {
	if e == nil || !e.Alive() {
		return ErrNotAlive
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.anims[animKey{e.ID(), dictionary, name}] = w.now().Add(w.animLen)
	return nil
}

func (w *SimWorld) IsAnimationPlaying(e Entity, dictionary, name string) bool {
	if e == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	key := animKey{e.ID(), dictionary, name}
	until, ok := w.anims[key]
	if !ok {
		return false
	}
	if w.now().After(until) {
		delete(w.anims, key)
		return false
	}
	return true
}

func (w *SimWorld) VehicleLength(model string) float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if l, ok := w.lengths[model]; ok {
		return l
	}
	return defaultVehicleLength
}

func (w *SimWorld) CreateSpeedZone(position geo.Vector, radius, limit float64) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	w.zones[w.nextID] = SpeedZone{ID: w.nextID, Position: position, Radius: radius, Limit: limit}
	return w.nextID
}

func (w *SimWorld) DeleteSpeedZone(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.zones, id)
}

func (w *SimWorld) CreateMarker(position geo.Vector, label string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	w.markers[w.nextID] = Marker{ID: w.nextID, Position: position, Label: label}
	return w.nextID
}

func (w *SimWorld) DeleteMarker(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.markers, id)
}

// Takeover implements Pursuit: cops not yet inside a vehicle are seated
// into the given one, driver seat first, and all of them are marked as
// controlled by the pursuit from now on.
func (w *SimWorld) Takeover(cops []Entity, vehicle Entity) {
	seat := driverSeat
	for _, cop := range cops {
		if cop == nil || !cop.Alive() {
			continue
		}
		if se, ok := cop.(*SimEntity); ok && se.InVehicle() == 0 && vehicle != nil && vehicle.Alive() {
			for seat <= maxPassengerSeats {
				if err := w.WarpIntoVehicle(cop, vehicle, seat); err == nil {
					break
				}
				seat++
			}
		}
		w.mu.Lock()
		w.crew[cop.ID()] = true
		w.mu.Unlock()
	}
}

// MoveEntity repositions an entity, keeping seated peds with their
// vehicle.
func (w *SimWorld) MoveEntity(e Entity, position geo.Vector, heading float64) {
	if e == nil {
		return
	}
	w.mu.RLock()
	se, ok := w.entities[e.ID()]
	var seats map[int]int64
	if ok && se.kind == KindVehicle {
		seats = w.seats[se.id]
	}
	w.mu.RUnlock()
	if !ok {
		return
	}

	se.mu.Lock()
	se.pos = position
	se.heading = geo.NormalizeHeading(heading)
	se.mu.Unlock()

	for _, pedID := range seats {
		w.mu.RLock()
		ped, ok := w.entities[pedID]
		w.mu.RUnlock()
		if ok {
			ped.mu.Lock()
			ped.pos = position
			ped.mu.Unlock()
		}
	}
}

// KillPed marks a ped as dead without removing it from the world.
func (w *SimWorld) KillPed(e Entity) {
	if e == nil || e.Kind() != KindPed {
		return
	}
	w.mu.RLock()
	se, ok := w.entities[e.ID()]
	w.mu.RUnlock()
	if !ok {
		return
	}
	se.mu.Lock()
	se.alive = false
	se.mu.Unlock()
}

// FailNext makes the next spawn of the given kind fail with err.
func (w *SimWorld) FailNext(kind EntityKind, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failNext[kind] = err
}

// SetVehicleLength registers a model length used by VehicleLength.
func (w *SimWorld) SetVehicleLength(model string, length float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lengths[model] = length
}

// Entities returns a snapshot of all live entities.
func (w *SimWorld) Entities() []*SimEntity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*SimEntity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	return out
}

// EntityCount returns the number of entities currently in the world.
func (w *SimWorld) EntityCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// PreviewCount returns how many preview ghosts are in the world.
func (w *SimWorld) PreviewCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for _, e := range w.entities {
		if e.preview {
			n++
		}
	}
	return n
}

// SpeedZones returns a snapshot of active speed zones.
func (w *SimWorld) SpeedZones() []SpeedZone {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]SpeedZone, 0, len(w.zones))
	for _, z := range w.zones {
		out = append(out, z)
	}
	return out
}

// Markers returns a snapshot of active map markers.
func (w *SimWorld) Markers() []Marker {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Marker, 0, len(w.markers))
	for _, m := range w.markers {
		out = append(out, m)
	}
	return out
}

// InPursuit reports whether the entity was handed over via Takeover.
func (w *SimWorld) InPursuit(e Entity) bool {
	if e == nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.crew[e.ID()]
}
