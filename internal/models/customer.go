package models

// AdminRoleID is the backend role id that grants admin rights.
const AdminRoleID = 2

// DefaultRoleID is assigned to newly registered customers.
const DefaultRoleID = 1

// ZeroVerificationTime marks a customer that has never been verified.
const ZeroVerificationTime = "0001-01-01T00:00:00Z"

// KycData is the identity part of a customer record.
type KycData struct {
	CustomerAddress    string `json:"customer_address"`
	Name               string `json:"name"`
	BirthDate          string `json:"birth_date"`
	Nationality        string `json:"nationality"`
	ResidentialAddress string `json:"residential_address"`
	PhoneNumber        string `json:"phone_number"`
	Email              string `json:"email"`
	DocumentType       string `json:"document_type"`
	DocumentNumber     string `json:"document_number"`
	FilePath           string `json:"file_path"`
	SubmissionDate     string `json:"submission_date"`
	RiskLevel          string `json:"risk_level"`
	SourceOfFunds      string `json:"source_of_funds"`
	Occupation         string `json:"occupation"`
}

// RoleMenu is a menu entry attached to a role.
type RoleMenu struct {
	RoleMenuID int    `json:"role_menu_id"`
	RoleID     int    `json:"role_id"`
	MenuName   string `json:"menu_name"`
	MenuPath   string `json:"menu_path"`
}

// Role is a backend role.
type Role struct {
	RoleID      int        `json:"role_id"`
	RoleName    string     `json:"role_name"`
	RoleType    string     `json:"role_type"`
	Description string     `json:"description"`
	CreateAt    string     `json:"create_at,omitempty"`
	Menus       []RoleMenu `json:"menus,omitempty"`
}

// Customer is a KYC registration keyed by wallet address.
type Customer struct {
	CustomerAddress  string  `json:"customer_address"`
	IsVerified       bool    `json:"is_verified"`
	VerifierAddress  string  `json:"verifier_address"`
	VerificationTime string  `json:"verification_time"`
	RegistrationTime string  `json:"registration_time"`
	RoleID           int     `json:"role_id"`
	AssignedDate     string  `json:"assigned_date"`
	KycData          KycData `json:"kyc_data"`
	KycVerifications []any   `json:"kyc_verifications"`
	Role             Role    `json:"role"`
}

// IsAdmin reports whether the customer holds the admin role.
func (c *Customer) IsAdmin() bool {
	return c != nil && c.RoleID == AdminRoleID
}

// CustomerRequest is the registration payload.
type CustomerRequest struct {
	CustomerAddress  string  `json:"customer_address"`
	IsVerified       bool    `json:"is_verified"`
	VerifierAddress  string  `json:"verifier_address"`
	VerificationTime string  `json:"verification_time"`
	RegistrationTime string  `json:"registration_time"`
	RoleID           int     `json:"role_id"`
	AssignedDate     string  `json:"assigned_date"`
	KycData          KycData `json:"kyc_data"`
	KycVerifications []any   `json:"kyc_verifications"`
}

// WalletState is what the portal knows about a browser's wallet.
type WalletState struct {
	IsConnected bool   `json:"isConnected"`
	Address     string `json:"address"`
	IsAdmin     bool   `json:"isAdmin"`
}

// UserState combines the wallet with the customer record behind it.
type UserState struct {
	Address     string    `json:"address"`
	IsConnected bool      `json:"isConnected"`
	IsVerified  bool      `json:"isVerified"`
	IsAdmin     bool      `json:"isAdmin"`
	Customer    *Customer `json:"customer"`
}
