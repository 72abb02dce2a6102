package service

import (
	"context"
	"testing"
	"time"

	"github.com/presenza-app/presenza/internal/domain"
)

type presenceFixture struct {
	svc     *PresenceService
	users   *mockUserStore
	tenants *mockTenantStore
	forms   *mockFormStore
	clock   *fixedClock
	tenant  *domain.Tenant
}

func newPresenceFixture(t *testing.T) *presenceFixture {
	t.Helper()

	tenants := newMockTenantStore()
	users := newMockUserStore()
	forms := newMockFormStore()
	clock := newFixedClock(at(9, 0))
	presences := newMockPresenceStore(forms, clock.Now)

	tenant := &domain.Tenant{Name: "Museo Civico", Code: "MUSEO", Active: true}
	if err := tenants.Create(context.Background(), tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	admission := NewAdmissionService(forms, clock, false, testLogger())
	svc := NewPresenceService(users, tenants, presences, admission, clock, nil, testLogger())

	return &presenceFixture{
		svc:     svc,
		users:   users,
		tenants: tenants,
		forms:   forms,
		clock:   clock,
		tenant:  tenant,
	}
}

func (f *presenceFixture) createUser(t *testing.T, identifier string, status domain.UserStatus) *domain.User {
	t.Helper()
	u := &domain.User{
		TenantID:   f.tenant.ID,
		Identifier: identifier,
		LastName:   "Rossi",
		FirstName:  "Anna",
		Status:     status,
	}
	if err := f.users.Create(context.Background(), u, nil); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestRecordPresence_ArrivalDepartureDay(t *testing.T) {
	f := newPresenceFixture(t)
	f.createUser(t, "VP-AAAA001", domain.UserActive)
	form := createPresenceForm(t, f.forms, f.tenant.ID, domain.ArrivalDeparture, true)

	steps := []struct {
		hour, min int
		want      domain.PresenceType
		message   string
	}{
		{9, 0, domain.PresenceArrival, "arrival recorded"},
		{12, 0, domain.PresenceDeparture, "departure recorded"},
		{14, 0, domain.PresenceArrival, "arrival recorded"},
	}

	for _, step := range steps {
		f.clock.Set(at(step.hour, step.min))
		res, err := f.svc.RecordPresence(context.Background(), "VP-AAAA001", form.ID)
		if err != nil {
			t.Fatalf("%02d:%02d: record: %v", step.hour, step.min, err)
		}
		if res.Presence.Type != step.want {
			t.Fatalf("%02d:%02d: expected %s, got %s", step.hour, step.min, step.want, res.Presence.Type)
		}
		if res.Message != step.message {
			t.Fatalf("%02d:%02d: expected message %q, got %q", step.hour, step.min, step.message, res.Message)
		}
	}

	history, err := f.svc.GetHistory(context.Background(), "VP-AAAA001")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}
	// Newest first.
	wantOrder := []domain.PresenceType{domain.PresenceArrival, domain.PresenceDeparture, domain.PresenceArrival}
	for i, want := range wantOrder {
		if history[i].Type != want {
			t.Fatalf("history[%d]: expected %s, got %s", i, want, history[i].Type)
		}
		if history[i].FormName != form.Name {
			t.Fatalf("history[%d]: expected form name %q, got %q", i, form.Name, history[i].FormName)
		}
		if history[i].FormType != domain.ArrivalDeparture {
			t.Fatalf("history[%d]: expected form type %s, got %s", i, domain.ArrivalDeparture, history[i].FormType)
		}
	}
}

// Whatever the sequence length, consecutive same-day events on an
// arrival/departure form must strictly alternate.
func TestRecordPresence_Alternation(t *testing.T) {
	f := newPresenceFixture(t)
	f.createUser(t, "VP-AAAA002", domain.UserActive)
	form := createPresenceForm(t, f.forms, f.tenant.ID, domain.ArrivalDeparture, true)

	var prev domain.PresenceType
	for i := 0; i < 12; i++ {
		f.clock.Set(at(8, i*5))
		res, err := f.svc.RecordPresence(context.Background(), "VP-AAAA002", form.ID)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if i == 0 {
			if res.Presence.Type != domain.PresenceArrival {
				t.Fatalf("first event should be ARRIVAL, got %s", res.Presence.Type)
			}
		} else if res.Presence.Type == prev {
			t.Fatalf("step %d: %s repeated", i, prev)
		}
		prev = res.Presence.Type
	}
}

func TestRecordPresence_DayBoundaryReset(t *testing.T) {
	f := newPresenceFixture(t)
	f.createUser(t, "VP-AAAA003", domain.UserActive)
	form := createPresenceForm(t, f.forms, f.tenant.ID, domain.ArrivalDeparture, true)

	f.clock.Set(at(9, 0))
	if _, err := f.svc.RecordPresence(context.Background(), "VP-AAAA003", form.ID); err != nil {
		t.Fatalf("day one: %v", err)
	}

	// Yesterday's lone ARRIVAL must not turn today's first event into
	// a DEPARTURE.
	f.clock.Set(at(9, 0).Add(24 * time.Hour))
	res, err := f.svc.RecordPresence(context.Background(), "VP-AAAA003", form.ID)
	if err != nil {
		t.Fatalf("day two: %v", err)
	}
	if res.Presence.Type != domain.PresenceArrival {
		t.Fatalf("expected ARRIVAL on the next day, got %s", res.Presence.Type)
	}
}

func TestRecordPresence_SimpleFormAlwaysSimple(t *testing.T) {
	f := newPresenceFixture(t)
	f.createUser(t, "VP-AAAA004", domain.UserActive)
	form := createPresenceForm(t, f.forms, f.tenant.ID, domain.SimplePresence, true)

	for i := 0; i < 4; i++ {
		f.clock.Set(at(10, i*10))
		res, err := f.svc.RecordPresence(context.Background(), "VP-AAAA004", form.ID)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.Presence.Type != domain.PresenceSimple {
			t.Fatalf("step %d: expected SIMPLE, got %s", i, res.Presence.Type)
		}
		if res.Message != "presence recorded" {
			t.Fatalf("step %d: unexpected message %q", i, res.Message)
		}
	}
}

func TestRecordPresence_TenantIsolation(t *testing.T) {
	f := newPresenceFixture(t)
	f.createUser(t, "VP-AAAA005", domain.UserActive)

	// The form belongs to a different tenant than the visitor.
	foreign := &domain.Tenant{Name: "Biblioteca", Code: "BIBLIO", Active: true}
	if err := f.tenants.Create(context.Background(), foreign); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	form := createPresenceForm(t, f.forms, foreign.ID, domain.SimplePresence, true)

	_, err := f.svc.RecordPresence(context.Background(), "VP-AAAA005", form.ID)
	if err != ErrFormNotFound {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}

func TestRecordPresence_UnknownIdentifier(t *testing.T) {
	f := newPresenceFixture(t)
	form := createPresenceForm(t, f.forms, f.tenant.ID, domain.SimplePresence, true)

	_, err := f.svc.RecordPresence(context.Background(), "VP-NOSUCH1", form.ID)
	if err != ErrUnknownIdentifier {
		t.Fatalf("expected ErrUnknownIdentifier, got %v", err)
	}
}

func TestRecordPresence_InactiveUser(t *testing.T) {
	f := newPresenceFixture(t)
	f.createUser(t, "VP-AAAA006", domain.UserInactive)
	form := createPresenceForm(t, f.forms, f.tenant.ID, domain.SimplePresence, true)

	_, err := f.svc.RecordPresence(context.Background(), "VP-AAAA006", form.ID)
	if err != ErrUnknownIdentifier {
		t.Fatalf("expected ErrUnknownIdentifier, got %v", err)
	}
}

func TestRecordPresence_InactiveTenant(t *testing.T) {
	f := newPresenceFixture(t)
	f.createUser(t, "VP-AAAA007", domain.UserActive)
	form := createPresenceForm(t, f.forms, f.tenant.ID, domain.SimplePresence, true)
	f.tenant.Active = false

	_, err := f.svc.RecordPresence(context.Background(), "VP-AAAA007", form.ID)
	if err != ErrUnknownIdentifier {
		t.Fatalf("expected ErrUnknownIdentifier, got %v", err)
	}
}

func TestGetHistory_UnknownIdentifier(t *testing.T) {
	f := newPresenceFixture(t)

	_, err := f.svc.GetHistory(context.Background(), "VP-NOSUCH2")
	if err != ErrUnknownIdentifier {
		t.Fatalf("expected ErrUnknownIdentifier, got %v", err)
	}
}
