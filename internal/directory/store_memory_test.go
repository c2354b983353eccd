package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afyalink/pkg/platform/sentinel"
)

func TestInMemoryStoreOperations(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	patient := &Patient{NIDA: "199012345678901", ID: "PAT001", Name: "John Michael", Email: "john@example.com"}
	require.NoError(t, store.SavePatient(ctx, patient))

	fetched, err := store.GetPatient(ctx, "199012345678901")
	require.NoError(t, err)
	assert.Equal(t, "John Michael", fetched.Name)

	// Copy integrity: mutating the fetched value must not touch the store
	fetched.Name = "Changed"
	again, err := store.GetPatient(ctx, "199012345678901")
	require.NoError(t, err)
	assert.Equal(t, "John Michael", again.Name)

	// Unknown key
	missing, err := store.GetPatient(ctx, "000000000000000")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Nil(t, missing)

	doctor := &Doctor{ID: "DOC001", Name: "Dr. Sarah K.", Specialty: "Internal Medicine", Facility: "Muhimbili National Hospital"}
	require.NoError(t, store.SaveDoctor(ctx, doctor))
	gotDoc, err := store.GetDoctor(ctx, "DOC001")
	require.NoError(t, err)
	assert.Equal(t, "Internal Medicine", gotDoc.Specialty)

	_, err = store.GetDoctor(ctx, "DOC999")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSearchPatients(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SavePatient(ctx, &Patient{NIDA: "199012345678901", Name: "John Michael"}))
	require.NoError(t, store.SavePatient(ctx, &Patient{NIDA: "199087654321098", Name: "Mary Johnson"}))

	all, err := store.SearchPatients(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "199012345678901", all[0].NIDA, "results must be ordered by nida")

	marys, err := store.SearchPatients(ctx, func(p *Patient) bool { return p.Name == "Mary Johnson" })
	require.NoError(t, err)
	require.Len(t, marys, 1)
	assert.Equal(t, "199087654321098", marys[0].NIDA)
}

func TestValidateNIDA(t *testing.T) {
	assert.NoError(t, ValidateNIDA("199012345678901"))
	assert.Error(t, ValidateNIDA(""))
	assert.Error(t, ValidateNIDA("12345"))
	assert.Error(t, ValidateNIDA("19901234567890a"))
}

func TestNewPatientValidation(t *testing.T) {
	_, err := NewPatient("199012345678901", "PAT001", "", "a@b.c", "")
	assert.Error(t, err)

	p, err := NewPatient("199012345678901", "PAT001", "John Michael", "john@example.com", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	require.NoError(t, err)
	assert.Equal(t, "PAT001", p.ID)
}
