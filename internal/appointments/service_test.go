package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/shared"
)

type fakeStore struct {
	byID map[string]*Appointment
	last ListAppointmentsRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]*Appointment{}}
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Appointment, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, req ListAppointmentsRequest) ([]Appointment, error) {
	f.last = req
	return nil, nil
}

func (f *fakeStore) Create(_ context.Context, a *Appointment) error {
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeStore) Update(_ context.Context, a *Appointment) error {
	if _, ok := f.byID[a.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeStore) SetStatus(_ context.Context, id string, status Status) error {
	a, ok := f.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.Status = status
	return nil
}

func (f *fakeStore) Overlapping(_ context.Context, professionalID string, startsAt, endsAt time.Time, excludeID string) (bool, error) {
	for _, a := range f.byID {
		if a.ID == excludeID || a.ProfessionalID != professionalID {
			continue
		}
		if a.Status != StatusScheduled && a.Status != StatusConfirmed {
			continue
		}
		if a.StartsAt.Before(endsAt) && a.EndsAt.After(startsAt) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DueForReminder(context.Context, time.Time, time.Time) ([]ReminderTarget, error) {
	return nil, nil
}

func (f *fakeStore) Ownership(_ context.Context, id string) (authz.Ownership, error) {
	a, ok := f.byID[id]
	if !ok {
		return authz.Ownership{}, shared.ErrNotFound
	}
	return authz.Ownership{ClinicID: a.ClinicID, ProfessionalID: a.ProfessionalID}, nil
}

// fakeDirectory maps patient ids to their clinic.
type fakeDirectory map[string]string

func (f fakeDirectory) ClinicOf(_ context.Context, id string) (string, error) {
	clinic, ok := f[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	return clinic, nil
}

var (
	recep  = authz.Identity{UserID: "u-recep", Role: authz.RoleRecepcionista, ClinicID: "clinic-1", Active: true}
	medico = authz.Identity{UserID: "u-medico", Role: authz.RoleMedico, ClinicID: "clinic-1", Active: true}
)

func fixedService(store Store) *Service {
	svc := NewService(store, fakeDirectory{"p-1": "clinic-1", "p-2": "clinic-1"}, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func book(t *testing.T, svc *Service, start, end string) *Appointment {
	t.Helper()
	a, err := svc.Create(context.Background(), recep, "clinic-1", CreateAppointmentRequest{
		PatientID:      "p-1",
		ProfessionalID: "u-medico",
		StartsAt:       start,
		EndsAt:         end,
	})
	require.NoError(t, err)
	return a
}

func TestCreateBooksFutureSlot(t *testing.T) {
	svc := fixedService(newFakeStore())
	a := book(t, svc, "2026-03-02T10:00:00Z", "2026-03-02T10:30:00Z")
	assert.Equal(t, StatusScheduled, a.Status)
	assert.Equal(t, "clinic-1", a.ClinicID)
}

func TestCreateRejectsPastSlot(t *testing.T) {
	svc := fixedService(newFakeStore())
	_, err := svc.Create(context.Background(), recep, "clinic-1", CreateAppointmentRequest{
		PatientID:      "p-1",
		ProfessionalID: "u-medico",
		StartsAt:       "2026-02-28T10:00:00Z",
		EndsAt:         "2026-02-28T10:30:00Z",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	svc := fixedService(newFakeStore())
	_, err := svc.Create(context.Background(), recep, "clinic-1", CreateAppointmentRequest{
		PatientID:      "p-1",
		ProfessionalID: "u-medico",
		StartsAt:       "2026-03-02T11:00:00Z",
		EndsAt:         "2026-03-02T10:30:00Z",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsOverlap(t *testing.T) {
	svc := fixedService(newFakeStore())
	book(t, svc, "2026-03-02T10:00:00Z", "2026-03-02T10:30:00Z")

	_, err := svc.Create(context.Background(), recep, "clinic-1", CreateAppointmentRequest{
		PatientID:      "p-2",
		ProfessionalID: "u-medico",
		StartsAt:       "2026-03-02T10:15:00Z",
		EndsAt:         "2026-03-02T10:45:00Z",
	})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateRejectsPatientFromAnotherClinic(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, fakeDirectory{"p-1": "clinic-2"}, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	// global-scope admin books into clinic-1, patient lives in clinic-2
	admin := authz.Identity{UserID: "u-admin", Role: authz.RoleAdmin, ClinicID: "clinic-1", Active: true}
	_, err := svc.Create(context.Background(), admin, "clinic-1", CreateAppointmentRequest{
		PatientID:      "p-1",
		ProfessionalID: "u-medico",
		StartsAt:       "2026-03-02T10:00:00Z",
		EndsAt:         "2026-03-02T10:30:00Z",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsUnknownPatient(t *testing.T) {
	svc := NewService(newFakeStore(), fakeDirectory{}, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	_, err := svc.Create(context.Background(), recep, "clinic-1", CreateAppointmentRequest{
		PatientID:      "p-missing",
		ProfessionalID: "u-medico",
		StartsAt:       "2026-03-02T10:00:00Z",
		EndsAt:         "2026-03-02T10:30:00Z",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListPinsMedicoToOwnAgenda(t *testing.T) {
	store := newFakeStore()
	svc := fixedService(store)

	other := "u-other"
	_, err := svc.List(context.Background(), medico, ListAppointmentsRequest{
		ClinicID:       "clinic-1",
		ProfessionalID: &other,
	})
	require.NoError(t, err)
	require.NotNil(t, store.last.ProfessionalID)
	assert.Equal(t, medico.UserID, *store.last.ProfessionalID)

	_, err = svc.List(context.Background(), recep, ListAppointmentsRequest{
		ClinicID:       "clinic-1",
		ProfessionalID: &other,
	})
	require.NoError(t, err)
	require.NotNil(t, store.last.ProfessionalID)
	assert.Equal(t, other, *store.last.ProfessionalID)
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusCompleted, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusScheduled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusScheduled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusScheduled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestChangeStatusEnforcesLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := fixedService(store)
	a := book(t, svc, "2026-03-02T10:00:00Z", "2026-03-02T10:30:00Z")

	got, err := svc.ChangeStatus(context.Background(), recep, a.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)

	got, err = svc.ChangeStatus(context.Background(), recep, a.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	_, err = svc.ChangeStatus(context.Background(), recep, a.ID, StatusCancelled)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRescheduleRejectsClosedAppointment(t *testing.T) {
	store := newFakeStore()
	svc := fixedService(store)
	a := book(t, svc, "2026-03-02T10:00:00Z", "2026-03-02T10:30:00Z")

	_, err := svc.ChangeStatus(context.Background(), recep, a.ID, StatusCancelled)
	require.NoError(t, err)

	start := "2026-03-03T10:00:00Z"
	_, err = svc.Reschedule(context.Background(), recep, a.ID, UpdateAppointmentRequest{StartsAt: &start})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRescheduleMovesWindow(t *testing.T) {
	store := newFakeStore()
	svc := fixedService(store)
	a := book(t, svc, "2026-03-02T10:00:00Z", "2026-03-02T10:30:00Z")

	start := "2026-03-03T14:00:00Z"
	end := "2026-03-03T14:30:00Z"
	got, err := svc.Reschedule(context.Background(), recep, a.ID, UpdateAppointmentRequest{StartsAt: &start, EndsAt: &end})
	require.NoError(t, err)
	assert.Equal(t, start, got.StartsAt.Format(time.RFC3339))
	assert.Equal(t, end, got.EndsAt.Format(time.RFC3339))
}
