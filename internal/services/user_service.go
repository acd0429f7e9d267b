package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/logger"

	"w3lottery/internal/cache"
	"w3lottery/internal/models"
)

// MaxPhotoSize is the upper bound (exclusive) for ID photos.
const MaxPhotoSize = 10 << 20

// MinAge is the youngest age allowed to register.
const MinAge = 18

// DefaultRiskLevel is assigned to new registrations.
const DefaultRiskLevel = "Low"

// CustomerAPI is the part of the backend client the user service uses.
type CustomerAPI interface {
	GetCustomer(ctx context.Context, address string) (*models.Customer, error)
	RegisterCustomer(ctx context.Context, req models.CustomerRequest) error
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	UploadPhoto(ctx context.Context, filename string, r io.Reader) (string, error)
}

// KycForm is the registration form.
type KycForm struct {
	Name               string `form:"name" validate:"required"`
	BirthDate          string `form:"birth_date" validate:"required,datetime=2006-01-02"`
	Nationality        string `form:"nationality" validate:"required"`
	ResidentialAddress string `form:"residential_address" validate:"required"`
	PhoneNumber        string `form:"phone_number" validate:"required"`
	Email              string `form:"email" validate:"required,email"`
	DocumentType       string `form:"document_type" validate:"required"`
	DocumentNumber     string `form:"document_number" validate:"required"`
	SourceOfFunds      string `form:"source_of_funds" validate:"required,oneof=Employment Investments Savings Business Other"`
	Occupation         string `form:"occupation" validate:"required"`
}

// Photo is an uploaded ID document image.
type Photo struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UserService resolves the customer record behind a wallet and handles
// KYC registration.
type UserService struct {
	api      CustomerAPI
	state    *cache.Loader[models.UserState]
	validate *validator.Validate
	now      func() time.Time
}

func NewUserService(client CustomerAPI, store cache.Store, stateTTL time.Duration) *UserService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	return &UserService{
		api:      client,
		state:    cache.NewLoader[models.UserState](store, "user_state", stateTTL),
		validate: v,
		now:      time.Now,
	}
}

// State returns the user behind wallet. A disconnected wallet is a guest and
// an address the backend does not know is an unregistered user.
func (s *UserService) State(ctx context.Context, wallet models.WalletState, force bool) (models.UserState, error) {
	if !wallet.IsConnected || wallet.Address == "" {
		if wallet.Address != "" {
			s.Forget(ctx, wallet.Address)
		}
		return models.UserState{}, nil
	}

	key := cache.UserKey(wallet.Address)
	if !force {
		if st, ok := s.state.Get(ctx, key); ok && strings.EqualFold(st.Address, wallet.Address) {
			return st, nil
		}
	}

	return s.state.Load(ctx, key, true, func(ctx context.Context) (models.UserState, error) {
		st := models.UserState{Address: wallet.Address, IsConnected: true}
		customer, err := s.api.GetCustomer(ctx, wallet.Address)
		if errors.Is(err, models.ErrNotFound) {
			return st, nil
		}
		if err != nil {
			return models.UserState{}, err
		}
		st.Customer = customer
		st.IsVerified = customer.IsVerified
		st.IsAdmin = customer.IsAdmin()
		return st, nil
	})
}

// Forget drops the cached state of address.
func (s *UserService) Forget(ctx context.Context, address string) {
	if err := s.state.Invalidate(ctx, cache.UserKey(address)); err != nil {
		logger.Warningf("Failed to drop user state of %s: %v", address, err)
	}
}

// IsVerified reports whether address passed KYC. Errors read as false.
func (s *UserService) IsVerified(ctx context.Context, address string) bool {
	if address == "" {
		return false
	}
	st, err := s.State(ctx, models.WalletState{IsConnected: true, Address: address}, false)
	return err == nil && st.IsVerified
}

// IsAdmin reports whether address holds the admin role. Errors read as false.
func (s *UserService) IsAdmin(ctx context.Context, address string) bool {
	if address == "" {
		return false
	}
	st, err := s.State(ctx, models.WalletState{IsConnected: true, Address: address}, false)
	return err == nil && st.IsAdmin
}

// ValidateKYC checks the form and photo without contacting the backend.
func (s *UserService) ValidateKYC(form KycForm, photo *Photo) error {
	if err := s.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return models.Invalid("form", "%v", err)
	}

	birth, err := time.Parse("2006-01-02", form.BirthDate)
	if err != nil {
		return models.Invalid("birth_date", "use YYYY-MM-DD")
	}
	if birth.AddDate(MinAge, 0, 0).After(s.now()) {
		return models.Invalid("birth_date", "you must be at least %d years old", MinAge)
	}

	if photo == nil || photo.Body == nil {
		return models.Invalid("id_photo", "please upload your ID document photo")
	}
	if photo.ContentType != "image/jpeg" && photo.ContentType != "image/png" {
		return models.Invalid("id_photo", "only JPG/PNG files are accepted")
	}
	if photo.Size >= MaxPhotoSize {
		return models.Invalid("id_photo", "image must be smaller than 10MB")
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return models.Invalid(fe.Field(), "is required")
	case "email":
		return models.Invalid(fe.Field(), "please enter a valid email")
	case "datetime":
		return models.Invalid(fe.Field(), "use YYYY-MM-DD")
	case "oneof":
		return models.Invalid(fe.Field(), "must be one of: %s", fe.Param())
	default:
		return models.Invalid(fe.Field(), "failed %s", fe.Tag())
	}
}

// RegisterKYC uploads the photo and registers address as an unverified
// customer.
func (s *UserService) RegisterKYC(ctx context.Context, address string, form KycForm, photo *Photo) error {
	if address == "" {
		return models.Invalid("address", "wallet address is required")
	}
	if err := s.ValidateKYC(form, photo); err != nil {
		return err
	}

	fileURL, err := s.api.UploadPhoto(ctx, photo.Filename, photo.Body)
	if err != nil {
		return fmt.Errorf("upload id photo: %w", err)
	}

	birth, _ := time.Parse("2006-01-02", form.BirthDate)
	req := NewCustomerRequest(address, models.KycData{
		Name:               form.Name,
		BirthDate:          birth.UTC().Format(time.RFC3339),
		Nationality:        form.Nationality,
		ResidentialAddress: form.ResidentialAddress,
		PhoneNumber:        form.PhoneNumber,
		Email:              form.Email,
		DocumentType:       form.DocumentType,
		DocumentNumber:     form.DocumentNumber,
		FilePath:           fileURL,
		RiskLevel:          DefaultRiskLevel,
		SourceOfFunds:      form.SourceOfFunds,
		Occupation:         form.Occupation,
	}, s.now())

	if err := s.api.RegisterCustomer(ctx, req); err != nil {
		return fmt.Errorf("register customer: %w", err)
	}
	logger.Infof("KYC submitted for %s", address)
	s.Forget(ctx, address)
	return nil
}

// NewCustomerRequest builds a registration for a new, unverified customer.
func NewCustomerRequest(address string, kyc models.KycData, now time.Time) models.CustomerRequest {
	ts := now.UTC().Format(time.RFC3339)
	kyc.CustomerAddress = address
	kyc.SubmissionDate = ts
	if kyc.RiskLevel == "" {
		kyc.RiskLevel = DefaultRiskLevel
	}
	return models.CustomerRequest{
		CustomerAddress:  address,
		IsVerified:       false,
		VerificationTime: models.ZeroVerificationTime,
		RegistrationTime: ts,
		RoleID:           models.DefaultRoleID,
		AssignedDate:     ts,
		KycData:          kyc,
		KycVerifications: []any{},
	}
}

// Customers returns every customer and the unverified subset.
func (s *UserService) Customers(ctx context.Context) (all, pending []models.Customer, err error) {
	all, err = s.api.ListCustomers(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range all {
		if !c.IsVerified {
			pending = append(pending, c)
		}
	}
	return all, pending, nil
}

// Customer returns one customer record.
func (s *UserService) Customer(ctx context.Context, address string) (*models.Customer, error) {
	return s.api.GetCustomer(ctx, address)
}

// Roles returns the backend roles.
func (s *UserService) Roles(ctx context.Context) ([]models.Role, error) {
	return s.api.ListRoles(ctx)
}
