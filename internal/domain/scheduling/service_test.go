package scheduling

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// mockApptRepo is an in-memory AppointmentRepository. InResourceTx
// serializes callers per equipment with a mutex, mirroring the
// advisory-lock behavior of the PostgreSQL implementation, and enforces
// appointment_number uniqueness on insert.
type mockApptRepo struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
	store map[uuid.UUID]*Appointment

	createErr  error   // injected once, then cleared
	failPrefix []string // numbers to reject with ErrDuplicateNumber
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{
		locks: make(map[uuid.UUID]*sync.Mutex),
		store: make(map[uuid.UUID]*Appointment),
	}
}

func (m *mockApptRepo) Create(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		err := m.createErr
		m.createErr = nil
		return err
	}
	for i, n := range m.failPrefix {
		if n == a.AppointmentNumber {
			m.failPrefix = append(m.failPrefix[:i], m.failPrefix[i+1:]...)
			return ErrDuplicateNumber
		}
	}
	for _, existing := range m.store {
		if existing.AppointmentNumber == a.AppointmentNumber {
			return ErrDuplicateNumber
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) Update(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	cp.UpdatedAt = time.Now()
	m.store[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) UpdateDetails(ctx context.Context, id uuid.UUID, orderID, technologistID *uuid.UUID, notes *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	a.OrderID = orderID
	a.TechnologistID = technologistID
	a.Notes = notes
	a.UpdatedAt = time.Now()
	return nil
}

func (m *mockApptRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	if notes != nil {
		a.Notes = notes
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (m *mockApptRepo) HasConflict(ctx context.Context, equipmentID uuid.UUID, start time.Time, durationMinutes int, excludeID *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	for _, a := range m.store {
		if a.EquipmentID != equipmentID || !a.Status.Blocking() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if Overlaps(start, end, a.StartTime, a.EndTime()) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockApptRepo) LastNumberForPrefix(ctx context.Context, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := ""
	for _, a := range m.store {
		if strings.HasPrefix(a.AppointmentNumber, prefix) && a.AppointmentNumber > last {
			last = a.AppointmentNumber
		}
	}
	return last, nil
}

func (m *mockApptRepo) ListActiveInRange(ctx context.Context, equipmentID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.store {
		if a.EquipmentID != equipmentID || !a.Status.Blocking() {
			continue
		}
		if Overlaps(from, to, a.StartTime, a.EndTime()) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *mockApptRepo) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.store {
		if params.PatientID != nil && a.PatientID != *params.PatientID {
			continue
		}
		if params.EquipmentID != nil && a.EquipmentID != *params.EquipmentID {
			continue
		}
		if params.Status != nil && a.Status != *params.Status {
			continue
		}
		if params.From != nil && a.StartTime.Before(*params.From) {
			continue
		}
		if params.To != nil && a.StartTime.After(*params.To) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, len(out), nil
}

func (m *mockApptRepo) InResourceTx(ctx context.Context, equipmentID uuid.UUID, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	lock, ok := m.locks[equipmentID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[equipmentID] = lock
	}
	m.mu.Unlock()
	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

// readHookRepo lets a test interleave a competing write right after a
// read, standing in for another scheduler whose admission commits
// between this caller's read and its write. The hook runs once, after
// the next successful GetByID.
type readHookRepo struct {
	*mockApptRepo
	afterGet func()
}

func (r *readHookRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := r.mockApptRepo.GetByID(ctx, id)
	if err == nil && r.afterGet != nil {
		hook := r.afterGet
		r.afterGet = nil
		hook()
	}
	return a, err
}

type mockPatients struct{ known map[uuid.UUID]bool }

func (m *mockPatients) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.known[id], nil
}

type mockEquipment struct{ bookable map[uuid.UUID]bool }

func (m *mockEquipment) Bookable(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.bookable[id], nil
}

type fixture struct {
	svc       *Service
	repo      *mockApptRepo
	patientID uuid.UUID
	equipID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockApptRepo()
	patientID := uuid.New()
	equipID := uuid.New()
	svc := NewService(
		repo,
		&mockPatients{known: map[uuid.UUID]bool{patientID: true}},
		&mockEquipment{bookable: map[uuid.UUID]bool{equipID: true}},
		ClinicHours{OpenHour: 8, CloseHour: 18},
		zerolog.Nop(),
	)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	}
	return &fixture{svc: svc, repo: repo, patientID: patientID, equipID: equipID}
}

func (f *fixture) createInput(start time.Time, minutes int) CreateInput {
	return CreateInput{
		EquipmentID:     f.equipID,
		PatientID:       f.patientID,
		StartTime:       start,
		DurationMinutes: minutes,
	}
}

func TestCreate_AssignsSequentialNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	want := []string{"APT202603100001", "APT202603100002", "APT202603100003"}
	for i, w := range want {
		appt, err := f.svc.Create(ctx, f.createInput(base.Add(time.Duration(i)*time.Hour), 30))
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if appt.AppointmentNumber != w {
			t.Errorf("create %d: number %q, want %q", i, appt.AppointmentNumber, w)
		}
		if appt.Status != StatusScheduled {
			t.Errorf("create %d: status %q", i, appt.Status)
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing equipment", CreateInput{PatientID: f.patientID, StartTime: start, DurationMinutes: 30}},
		{"missing patient", CreateInput{EquipmentID: f.equipID, StartTime: start, DurationMinutes: 30}},
		{"zero start", CreateInput{EquipmentID: f.equipID, PatientID: f.patientID, DurationMinutes: 30}},
		{"zero duration", CreateInput{EquipmentID: f.equipID, PatientID: f.patientID, StartTime: start}},
		{"negative duration", CreateInput{EquipmentID: f.equipID, PatientID: f.patientID, StartTime: start, DurationMinutes: -15}},
	}
	for _, tt := range tests {
		if _, err := f.svc.Create(ctx, tt.in); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tt.name, err)
		}
	}
}

func TestCreate_UnknownPatient(t *testing.T) {
	f := newFixture(t)
	in := f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30)
	in.PatientID = uuid.New()
	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestCreate_UnbookableEquipment(t *testing.T) {
	f := newFixture(t)
	in := f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30)
	in.EquipmentID = uuid.New()
	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestCreate_SlotConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := func(h, m int) time.Time { return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC) }

	if _, err := f.svc.Create(ctx, f.createInput(at(10, 0), 30)); err != nil {
		t.Fatal(err)
	}

	// Overlapping window on the same equipment is refused and nothing
	// is written.
	_, err := f.svc.Create(ctx, f.createInput(at(10, 15), 30))
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
	if len(f.repo.store) != 1 {
		t.Errorf("conflicting create must not persist, store has %d rows", len(f.repo.store))
	}

	// Back-to-back booking starting exactly at the previous end is fine.
	if _, err := f.svc.Create(ctx, f.createInput(at(10, 30), 30)); err != nil {
		t.Errorf("back-to-back create failed: %v", err)
	}
}

func TestCreate_SameWindowDifferentEquipment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	if _, err := f.svc.Create(ctx, f.createInput(start, 30)); err != nil {
		t.Fatal(err)
	}

	other := uuid.New()
	f.svc.equipment.(*mockEquipment).bookable[other] = true
	in := f.createInput(start, 30)
	in.EquipmentID = other
	if _, err := f.svc.Create(ctx, in); err != nil {
		t.Errorf("same window on different equipment should succeed: %v", err)
	}
}

func TestCreate_CancelledDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	appt, err := f.svc.Create(ctx, f.createInput(start, 30))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Cancel(ctx, appt.ID, "patient request"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Create(ctx, f.createInput(start, 30)); err != nil {
		t.Errorf("cancelled appointment should release its window: %v", err)
	}
}

func TestCreate_NoShowStillBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	appt, err := f.svc.Create(ctx, f.createInput(start, 30))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(ctx, appt.ID, StatusNoShow, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Create(ctx, f.createInput(start, 30)); !errors.Is(err, ErrSlotConflict) {
		t.Errorf("no_show should keep blocking its window, got %v", err)
	}
}

func TestCreate_RetriesOnDuplicateNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// First issuance loses the uniqueness race; the retry recomputes.
	f.repo.failPrefix = []string{"APT202603100001"}
	appt, err := f.svc.Create(ctx, f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30))
	if err != nil {
		t.Fatalf("create should recover from a duplicate number: %v", err)
	}
	if appt.AppointmentNumber != "APT202603100001" {
		t.Errorf("number %q", appt.AppointmentNumber)
	}
}

func TestCreate_GivesUpAfterRepeatedDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.failPrefix = []string{"APT202603100001", "APT202603100001", "APT202603100001"}
	_, err := f.svc.Create(ctx, f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30))
	if !errors.Is(err, ErrDuplicateNumber) {
		t.Errorf("expected ErrDuplicateNumber after exhausting retries, got %v", err)
	}
}

func TestCreate_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), f.createInput(start, 30))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var created, conflicted int
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrSlotConflict):
			conflicted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("exactly one concurrent create should win, got %d", created)
	}
	if conflicted != callers-1 {
		t.Errorf("expected %d conflicts, got %d", callers-1, conflicted)
	}
}

func TestCreate_NumberIssuanceAcrossMidnight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30)); err != nil {
		t.Fatal(err)
	}

	// The clock crosses midnight between successive reads. Prefix and
	// sequence must come from one captured instant, so the booking gets
	// the next March 10 number instead of an issuance error.
	step := 0
	f.svc.now = func() time.Time {
		step++
		return time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC).
			Add(time.Duration(step-1) * 2 * time.Second)
	}

	appt, err := f.svc.Create(ctx, f.createInput(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), 30))
	if err != nil {
		t.Fatalf("issuance across midnight: %v", err)
	}
	if appt.AppointmentNumber != "APT202603100002" {
		t.Errorf("number %q, want APT202603100002", appt.AppointmentNumber)
	}
}

func TestSearch_DateWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := func(h, m int) time.Time { return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC) }

	for _, start := range []time.Time{at(9, 0), at(11, 0), at(14, 0)} {
		if _, err := f.svc.Create(ctx, f.createInput(start, 30)); err != nil {
			t.Fatal(err)
		}
	}

	from, to := at(10, 0), at(13, 0)
	items, total, err := f.svc.Search(ctx, SearchParams{From: &from, To: &to}, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected exactly one appointment in window, got %d (total %d)", len(items), total)
	}
	if !items[0].StartTime.Equal(at(11, 0)) {
		t.Errorf("start %v, want 11:00", items[0].StartTime)
	}
}

func TestReschedule_ExcludesSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	appt, err := f.svc.Create(ctx, f.createInput(start, 30))
	if err != nil {
		t.Fatal(err)
	}

	// Extending the duration overlaps only the appointment itself.
	minutes := 60
	updated, err := f.svc.Reschedule(ctx, appt.ID, UpdateInput{DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("self-overlapping reschedule must succeed: %v", err)
	}
	if updated.DurationMinutes != 60 {
		t.Errorf("duration %d", updated.DurationMinutes)
	}
}

func TestReschedule_ConflictLeavesRecordUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := func(h, m int) time.Time { return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC) }

	first, err := f.svc.Create(ctx, f.createInput(at(10, 0), 30))
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.Create(ctx, f.createInput(at(11, 0), 30))
	if err != nil {
		t.Fatal(err)
	}

	moveTo := at(10, 15)
	_, err = f.svc.Reschedule(ctx, second.ID, UpdateInput{StartTime: &moveTo})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}

	current, err := f.svc.Get(ctx, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !current.StartTime.Equal(at(11, 0)) {
		t.Errorf("failed reschedule must not move the appointment, start %v", current.StartTime)
	}
	_ = first
}

func TestReschedule_NonWindowFieldsSkipConflictCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30))
	if err != nil {
		t.Fatal(err)
	}

	notes := "contrast allergy flagged"
	tech := uuid.New()
	updated, err := f.svc.Reschedule(ctx, appt.ID, UpdateInput{Notes: &notes, TechnologistID: &tech})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Notes == nil || *updated.Notes != notes {
		t.Error("notes not applied")
	}
	if updated.TechnologistID == nil || *updated.TechnologistID != tech {
		t.Error("technologist not applied")
	}
	if !updated.StartTime.Equal(appt.StartTime) {
		t.Error("start time changed unexpectedly")
	}
}

func TestReschedule_StaleDetailUpdateKeepsConcurrentMove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := func(h, m int) time.Time { return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC) }

	appt, err := f.svc.Create(ctx, f.createInput(at(10, 0), 30))
	if err != nil {
		t.Fatal(err)
	}

	// Another scheduler moves the appointment to 12:00 right after this
	// caller's read, so the notes update runs on a stale view.
	hooked := &readHookRepo{mockApptRepo: f.repo}
	hooked.afterGet = func() {
		f.repo.mu.Lock()
		f.repo.store[appt.ID].StartTime = at(12, 0)
		f.repo.mu.Unlock()
	}
	f.svc.appointments = hooked

	notes := "fasting confirmed"
	updated, err := f.svc.Reschedule(ctx, appt.ID, UpdateInput{Notes: &notes})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.StartTime.Equal(at(12, 0)) {
		t.Fatalf("notes update reverted the concurrent move, start %v", updated.StartTime)
	}
	if updated.Notes == nil || *updated.Notes != notes {
		t.Error("notes not applied")
	}

	// The vacated 10:00 window is free; 12:00 stays held.
	if _, err := f.svc.Create(ctx, f.createInput(at(10, 0), 30)); err != nil {
		t.Errorf("vacated window should be bookable: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.createInput(at(12, 0), 30)); !errors.Is(err, ErrSlotConflict) {
		t.Errorf("moved appointment should still hold 12:00, got %v", err)
	}
}

func TestReschedule_WindowMoveReReadsUnderLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := func(h, m int) time.Time { return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC) }

	appt, err := f.svc.Create(ctx, f.createInput(at(10, 0), 30))
	if err != nil {
		t.Fatal(err)
	}

	// The appointment is cancelled between this caller's read and its
	// admission transaction; the re-read under the lock must catch it.
	hooked := &readHookRepo{mockApptRepo: f.repo}
	hooked.afterGet = func() {
		f.repo.mu.Lock()
		f.repo.store[appt.ID].Status = StatusCancelled
		f.repo.mu.Unlock()
	}
	f.svc.appointments = hooked

	moveTo := at(13, 0)
	if _, err := f.svc.Reschedule(ctx, appt.ID, UpdateInput{StartTime: &moveTo}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	current, err := f.svc.Get(ctx, appt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !current.StartTime.Equal(at(10, 0)) || current.Status != StatusCancelled {
		t.Errorf("refused reschedule must leave the row alone, start %v status %q", current.StartTime, current.Status)
	}
}

func TestReschedule_TerminalAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Cancel(ctx, appt.ID, ""); err != nil {
		t.Fatal(err)
	}

	moveTo := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if _, err := f.svc.Reschedule(ctx, appt.ID, UpdateInput{StartTime: &moveTo}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("rescheduling a cancelled appointment should fail, got %v", err)
	}
}

func TestReschedule_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Reschedule(context.Background(), uuid.New(), UpdateInput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30))
	if err != nil {
		t.Fatal(err)
	}

	for _, next := range []Status{StatusConfirmed, StatusArrived, StatusCheckedIn, StatusInProgress, StatusCompleted} {
		appt, err = f.svc.UpdateStatus(ctx, appt.ID, next, nil)
		if err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
		if appt.Status != next {
			t.Fatalf("status %q after transition to %s", appt.Status, next)
		}
	}

	// completed is terminal.
	if _, err := f.svc.UpdateStatus(ctx, appt.ID, StatusCancelled, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from completed, got %v", err)
	}
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(ctx, appt.ID, StatusCompleted, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("scheduled -> completed should fail, got %v", err)
	}

	current, _ := f.svc.Get(ctx, appt.ID)
	if current.Status != StatusScheduled {
		t.Errorf("failed transition must not change status, got %q", current.Status)
	}
}

func TestUpdateStatus_KeepsConcurrentMove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := func(h, m int) time.Time { return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC) }

	appt, err := f.svc.Create(ctx, f.createInput(at(10, 0), 30))
	if err != nil {
		t.Fatal(err)
	}

	// Another scheduler moves the appointment to 12:00 right after this
	// caller's read; confirming must not drag the window back.
	hooked := &readHookRepo{mockApptRepo: f.repo}
	hooked.afterGet = func() {
		f.repo.mu.Lock()
		f.repo.store[appt.ID].StartTime = at(12, 0)
		f.repo.mu.Unlock()
	}
	f.svc.appointments = hooked

	updated, err := f.svc.UpdateStatus(ctx, appt.ID, StatusConfirmed, nil)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("status %q", updated.Status)
	}
	if !updated.StartTime.Equal(at(12, 0)) {
		t.Fatalf("status update reverted the concurrent move, start %v", updated.StartTime)
	}
	if _, err := f.svc.Create(ctx, f.createInput(at(10, 0), 30)); err != nil {
		t.Errorf("vacated window should be bookable: %v", err)
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateStatus(ctx, appt.ID, Status("archived"), nil); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCancel_KeepsRecordAndReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createInput(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), 30))
	if err != nil {
		t.Fatal(err)
	}
	cancelled, err := f.svc.Cancel(ctx, appt.ID, "equipment maintenance")
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status %q", cancelled.Status)
	}
	if cancelled.Notes == nil || *cancelled.Notes != "equipment maintenance" {
		t.Error("cancellation reason not stored")
	}
	if cancelled.AppointmentNumber != appt.AppointmentNumber {
		t.Error("cancellation must not reassign the number")
	}

	// The row is still there.
	if _, err := f.svc.Get(ctx, appt.ID); err != nil {
		t.Errorf("cancelled appointment should remain readable: %v", err)
	}
}

func TestAvailableSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := func(h, m int) time.Time { return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC) }

	if _, err := f.svc.Create(ctx, f.createInput(at(10, 0), 60)); err != nil {
		t.Fatal(err)
	}

	slots, err := f.svc.AvailableSlots(ctx, f.equipID, at(0, 0), 30)
	if err != nil {
		t.Fatal(err)
	}
	// 20 grid positions minus the two covered by the 10:00-11:00 booking.
	if len(slots) != 18 {
		t.Fatalf("expected 18 free slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.StartTime.Equal(at(10, 0)) || s.StartTime.Equal(at(10, 30)) {
			t.Errorf("slot at %v should be blocked", s.StartTime)
		}
		if s.StartTime.Hour() < 8 || s.EndTime.After(at(18, 0)) {
			t.Errorf("slot [%v, %v) outside operating hours", s.StartTime, s.EndTime)
		}
	}
}

func TestAvailableSlots_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := f.svc.AvailableSlots(ctx, uuid.Nil, day, 30); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for nil equipment, got %v", err)
	}
	if _, err := f.svc.AvailableSlots(ctx, f.equipID, day, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for zero duration, got %v", err)
	}
}
