// Package opendental is a thin client for the Open Dental REST API, the
// practice's external system of record for patient demographics. Each
// location authenticates with its own customer/developer key pair; the core
// only reads demographics and, on staff submissions, posts selected fields
// back.
package opendental

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUpstream wraps any failure to reach the directory or a non-2xx response.
var ErrUpstream = errors.New("patient directory unavailable")

// ErrMissingCredentials is returned when a location lacks a complete
// customer/developer key pair. Calls fail fast without touching the network.
var ErrMissingCredentials = errors.New("location is missing Open Dental credentials")

// Patient holds the demographic fields the forms flow reads and reconciles.
type Patient struct {
	PatNum        string `json:"PatNum"`
	LName         string `json:"LName"`
	FName         string `json:"FName"`
	Birthdate     string `json:"Birthdate"`
	WirelessPhone string `json:"WirelessPhone"`
	HmPhone       string `json:"HmPhone"`
	Email         string `json:"Email"`
	Address       string `json:"Address"`
	Address2      string `json:"Address2"`
	City          string `json:"City"`
	State         string `json:"State"`
	Zip           string `json:"Zip"`
}

// DisplayName returns "First Last" for notifications and PDF headers.
func (p *Patient) DisplayName() string {
	switch {
	case p.FName != "" && p.LName != "":
		return p.FName + " " + p.LName
	case p.LName != "":
		return p.LName
	default:
		return p.FName
	}
}

// FieldValue maps a template field label to the value currently on file.
// Labels follow Open Dental column names; unknown labels report ok=false and
// are never reconciled against the directory.
func (p *Patient) FieldValue(name string) (string, bool) {
	switch name {
	case "LName":
		return p.LName, true
	case "FName":
		return p.FName, true
	case "Birthdate":
		return p.Birthdate, true
	case "WirelessPhone":
		return p.WirelessPhone, true
	case "HmPhone":
		return p.HmPhone, true
	case "Email":
		return p.Email, true
	case "Address":
		return p.Address, true
	case "Address2":
		return p.Address2, true
	case "City":
		return p.City, true
	case "State":
		return p.State, true
	case "Zip":
		return p.Zip, true
	default:
		return "", false
	}
}

// Client talks to the Open Dental API on behalf of one location.
type Client struct {
	baseURL      string
	customerKey  string
	developerKey string
	http         *http.Client
}

// NewClient builds a location-scoped client. Both keys are mandatory.
func NewClient(baseURL, customerKey, developerKey string) (*Client, error) {
	if customerKey == "" || developerKey == "" {
		return nil, ErrMissingCredentials
	}
	return &Client{
		baseURL:      baseURL,
		customerKey:  customerKey,
		developerKey: developerKey,
		http:         &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	// Open Dental API key scheme: ODFHIR <CustomerKey>/<DeveloperKey>
	req.Header.Set("Authorization", fmt.Sprintf("ODFHIR %s/%s", c.customerKey, c.developerKey))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d", ErrUpstream, method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
		}
	}
	return nil
}

// GetPatient fetches the patient record by PatNum.
func (c *Client) GetPatient(ctx context.Context, patNum string) (*Patient, error) {
	var p Patient
	if err := c.do(ctx, http.MethodGet, "/patients/"+patNum, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePatient posts changed demographic fields back to the patient record.
func (c *Client) UpdatePatient(ctx context.Context, patNum string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPut, "/patients/"+patNum, fields, nil)
}
