package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"w3lottery/internal/models"
)

// PhotoField is the multipart field name the backend expects for ID photos.
const PhotoField = "idPhoto"

func (c *Client) RegisterCustomer(ctx context.Context, req models.CustomerRequest) error {
	_, err := c.do(ctx, "register_customer", http.MethodPost, "/customers", nil, req, nil)
	return err
}

func (c *Client) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var out []models.Customer
	if _, err := c.do(ctx, "list_customers", http.MethodGet, "/customers", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCustomer returns the customer registered for address. An unregistered
// address yields models.ErrNotFound.
func (c *Client) GetCustomer(ctx context.Context, address string) (*models.Customer, error) {
	var out models.Customer
	path := fmt.Sprintf("/customers/%s", url.PathEscape(address))
	if _, err := c.do(ctx, "get_customer", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListRoles(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	if _, err := c.do(ctx, "list_roles", http.MethodGet, "/customers/roles", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadPhoto uploads an ID photo and returns the stored file URL.
func (c *Client) UploadPhoto(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(PhotoField, filename)
	if err != nil {
		return "", fmt.Errorf("api: upload_photo: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("api: upload_photo: copy: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("api: upload_photo: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/customers/upload-photo", &buf)
	if err != nil {
		return "", fmt.Errorf("api: upload_photo: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		FileURL string `json:"file_url"`
	}
	if _, err := c.send("upload_photo", req, &out); err != nil {
		return "", err
	}
	return out.FileURL, nil
}
