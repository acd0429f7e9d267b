package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3lottery/internal/cache"
	"w3lottery/internal/models"
)

type fakeCustomerAPI struct {
	customers  map[string]*models.Customer
	getErr     error
	gets       int
	registered []models.CustomerRequest
	uploaded   []string
}

func (f *fakeCustomerAPI) GetCustomer(_ context.Context, address string) (*models.Customer, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.customers[address]
	if !ok {
		return nil, fmt.Errorf("api: get_customer: %w", models.ErrNotFound)
	}
	return c, nil
}

func (f *fakeCustomerAPI) RegisterCustomer(_ context.Context, req models.CustomerRequest) error {
	f.registered = append(f.registered, req)
	return nil
}

func (f *fakeCustomerAPI) ListCustomers(context.Context) ([]models.Customer, error) {
	var out []models.Customer
	for _, c := range f.customers {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCustomerAPI) ListRoles(context.Context) ([]models.Role, error) {
	return []models.Role{{RoleID: 1, RoleName: "user"}, {RoleID: 2, RoleName: "admin"}}, nil
}

func (f *fakeCustomerAPI) UploadPhoto(_ context.Context, filename string, r io.Reader) (string, error) {
	_, _ = io.ReadAll(r)
	f.uploaded = append(f.uploaded, filename)
	return "/uploads/" + filename, nil
}

func TestUserService_State(t *testing.T) {
	ctx := context.Background()
	f := &fakeCustomerAPI{customers: map[string]*models.Customer{
		"0xadmin": {CustomerAddress: "0xadmin", IsVerified: true, RoleID: models.AdminRoleID},
		"0xuser":  {CustomerAddress: "0xuser", IsVerified: true, RoleID: models.DefaultRoleID},
	}}
	s := NewUserService(f, cache.NewMemoryStore(), 2*time.Hour)

	t.Run("disconnected is guest", func(t *testing.T) {
		st, err := s.State(ctx, models.WalletState{}, false)
		require.NoError(t, err)
		assert.Equal(t, models.UserState{}, st)
		assert.Equal(t, 0, f.gets)
	})

	t.Run("admin", func(t *testing.T) {
		st, err := s.State(ctx, models.WalletState{IsConnected: true, Address: "0xadmin"}, false)
		require.NoError(t, err)
		assert.True(t, st.IsVerified)
		assert.True(t, st.IsAdmin)
		assert.True(t, s.IsAdmin(ctx, "0xadmin"))
		assert.False(t, s.IsAdmin(ctx, "0xuser"))
		assert.True(t, s.IsVerified(ctx, "0xuser"))
	})

	t.Run("cached per address", func(t *testing.T) {
		before := f.gets
		_, err := s.State(ctx, models.WalletState{IsConnected: true, Address: "0xadmin"}, false)
		require.NoError(t, err)
		assert.Equal(t, before, f.gets)

		_, err = s.State(ctx, models.WalletState{IsConnected: true, Address: "0xadmin"}, true)
		require.NoError(t, err)
		assert.Equal(t, before+1, f.gets)
	})

	t.Run("unknown address is unregistered", func(t *testing.T) {
		st, err := s.State(ctx, models.WalletState{IsConnected: true, Address: "0xnew"}, false)
		require.NoError(t, err)
		assert.True(t, st.IsConnected)
		assert.False(t, st.IsVerified)
		assert.False(t, st.IsAdmin)
		assert.Nil(t, st.Customer)
	})

	t.Run("backend failure is surfaced", func(t *testing.T) {
		failing := &fakeCustomerAPI{getErr: errors.New("connection refused")}
		s := NewUserService(failing, cache.NewMemoryStore(), time.Hour)
		_, err := s.State(ctx, models.WalletState{IsConnected: true, Address: "0xabc"}, false)
		assert.Error(t, err)
		assert.False(t, s.IsVerified(ctx, "0xabc"))
	})
}

func validForm() KycForm {
	return KycForm{
		Name:               "Ada Lovelace",
		BirthDate:          "1990-12-10",
		Nationality:        "UK",
		ResidentialAddress: "1 Example Street",
		PhoneNumber:        "+44 20 0000 0000",
		Email:              "ada@example.com",
		DocumentType:       "Passport",
		DocumentNumber:     "X1234567",
		SourceOfFunds:      "Employment",
		Occupation:         "Mathematician",
	}
}

func validPhoto() *Photo {
	return &Photo{Filename: "id.png", ContentType: "image/png", Size: 1024, Body: strings.NewReader("png")}
}

func TestUserService_ValidateKYC(t *testing.T) {
	s := NewUserService(&fakeCustomerAPI{}, cache.NewMemoryStore(), time.Hour)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, s.ValidateKYC(validForm(), validPhoto()))

	tests := []struct {
		name  string
		form  func(*KycForm)
		photo *Photo
		field string
	}{
		{"missing name", func(f *KycForm) { f.Name = "" }, validPhoto(), "name"},
		{"bad email", func(f *KycForm) { f.Email = "ada-at-example" }, validPhoto(), "email"},
		{"under age", func(f *KycForm) { f.BirthDate = "2007-06-02" }, validPhoto(), "birth_date"},
		{"bad birth date", func(f *KycForm) { f.BirthDate = "10/12/1990" }, validPhoto(), "birth_date"},
		{"unknown source of funds", func(f *KycForm) { f.SourceOfFunds = "Lottery" }, validPhoto(), "source_of_funds"},
		{"no photo", func(*KycForm) {}, nil, "id_photo"},
		{"gif photo", func(*KycForm) {}, &Photo{ContentType: "image/gif", Size: 10, Body: strings.NewReader("")}, "id_photo"},
		{"large photo", func(*KycForm) {}, &Photo{ContentType: "image/jpeg", Size: MaxPhotoSize, Body: strings.NewReader("")}, "id_photo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.form(&form)
			err := s.ValidateKYC(form, tt.photo)
			require.ErrorIs(t, err, models.ErrInvalidInput)
			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	t.Run("exactly eighteen today", func(t *testing.T) {
		form := validForm()
		form.BirthDate = "2006-06-01"
		assert.NoError(t, s.ValidateKYC(form, validPhoto()))
	})
}

func TestUserService_RegisterKYC(t *testing.T) {
	ctx := context.Background()
	f := &fakeCustomerAPI{customers: map[string]*models.Customer{}}
	store := cache.NewMemoryStore()
	s := NewUserService(f, store, time.Hour)
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	st, err := s.State(ctx, models.WalletState{IsConnected: true, Address: "0xnew"}, false)
	require.NoError(t, err)
	require.False(t, st.IsVerified)

	require.NoError(t, s.RegisterKYC(ctx, "0xnew", validForm(), validPhoto()))

	require.Len(t, f.registered, 1)
	req := f.registered[0]
	assert.Equal(t, "0xnew", req.CustomerAddress)
	assert.False(t, req.IsVerified)
	assert.Equal(t, models.ZeroVerificationTime, req.VerificationTime)
	assert.Equal(t, models.DefaultRoleID, req.RoleID)
	assert.Equal(t, "2024-06-01T09:30:00Z", req.RegistrationTime)
	assert.Equal(t, "2024-06-01T09:30:00Z", req.KycData.SubmissionDate)
	assert.Equal(t, DefaultRiskLevel, req.KycData.RiskLevel)
	assert.Equal(t, "/uploads/id.png", req.KycData.FilePath)
	assert.Equal(t, "0xnew", req.KycData.CustomerAddress)

	_, err = store.Get(ctx, cache.UserKey("0xnew"))
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestUserService_Customers(t *testing.T) {
	f := &fakeCustomerAPI{customers: map[string]*models.Customer{
		"0xa": {CustomerAddress: "0xa", IsVerified: true},
		"0xb": {CustomerAddress: "0xb"},
	}}
	s := NewUserService(f, cache.NewMemoryStore(), time.Hour)

	all, pending, err := s.Customers(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
	require.Len(t, pending, 1)
	assert.Equal(t, "0xb", pending[0].CustomerAddress)
}
