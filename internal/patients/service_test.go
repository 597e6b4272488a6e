package patients

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/shared"
)

type fakeStore struct {
	byID  map[string]*Patient
	byCPF map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]*Patient{}, byCPF: map[string]string{}}
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Patient, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, req ListPatientsRequest) ([]Patient, error) {
	out := []Patient{}
	for _, p := range f.byID {
		if p.ClinicID == req.ClinicID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, p *Patient) error {
	key := p.ClinicID + "/" + p.CPF
	if _, dup := f.byCPF[key]; dup {
		return shared.ErrDuplicate
	}
	cp := *p
	f.byID[p.ID] = &cp
	f.byCPF[key] = p.ID
	return nil
}

func (f *fakeStore) Update(_ context.Context, p *Patient) error {
	if _, ok := f.byID[p.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeStore) SoftDelete(_ context.Context, id string) error {
	p, ok := f.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (f *fakeStore) ClinicOf(_ context.Context, id string) (string, error) {
	p, ok := f.byID[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	return p.ClinicID, nil
}

var actor = authz.Identity{UserID: "u-1", Role: authz.RoleRecepcionista, ClinicID: "clinic-1", Active: true}

func TestCreateNormalizesInput(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	p, err := svc.Create(context.Background(), actor, "clinic-1", CreatePatientRequest{
		FullName: "  maria da silva  ",
		CPF:      "529.982.247-25",
	})
	require.NoError(t, err)
	assert.Equal(t, "52998224725", p.CPF)
	assert.Equal(t, "Maria Da Silva", p.FullName)
	assert.Equal(t, "clinic-1", p.ClinicID)
	assert.True(t, p.IsActive)
	assert.NotEmpty(t, p.ID)
}

func TestCreateRejectsBadCPF(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	_, err := svc.Create(context.Background(), actor, "clinic-1", CreatePatientRequest{
		FullName: "Maria Da Silva",
		CPF:      "111.111.111-11",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsDuplicateCPF(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	req := CreatePatientRequest{FullName: "Maria Da Silva", CPF: "52998224725"}
	_, err := svc.Create(context.Background(), actor, "clinic-1", req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), actor, "clinic-1", req)
	assert.ErrorIs(t, err, shared.ErrDuplicate)

	// same CPF in another clinic is allowed
	_, err = svc.Create(context.Background(), actor, "clinic-2", req)
	assert.NoError(t, err)
}

func TestCreateRejectsFutureBirthDate(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	future := "2999-01-01"
	_, err := svc.Create(context.Background(), actor, "clinic-1", CreatePatientRequest{
		FullName:  "Maria Da Silva",
		CPF:       "52998224725",
		BirthDate: &future,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	p, err := svc.Create(context.Background(), actor, "clinic-1", CreatePatientRequest{
		FullName: "Maria Da Silva",
		CPF:      "52998224725",
	})
	require.NoError(t, err)

	phone := "+55 11 91234-5678"
	got, err := svc.Update(context.Background(), actor, p.ID, UpdatePatientRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, *got.Phone)
	assert.Equal(t, "Maria Da Silva", got.FullName)
}

func TestDeleteDeactivates(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	p, err := svc.Create(context.Background(), actor, "clinic-1", CreatePatientRequest{
		FullName: "Maria Da Silva",
		CPF:      "52998224725",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), actor, p.ID))
	got, err := store.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestDeleteMissingPatient(t *testing.T) {
	svc := NewService(newFakeStore(), nil)
	err := svc.Delete(context.Background(), actor, "nope")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
