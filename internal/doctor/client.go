// Package doctor resolves consultation fees from the doctor directory service.
package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"consultation-service/internal/config"
)

// ErrUnavailable is returned whenever the doctor directory cannot supply a
// usable fee: transport errors, timeouts, non-2xx responses and malformed
// bodies all collapse into it. Callers are expected to apply their fallback
// policy rather than inspect the cause.
var ErrUnavailable = errors.New("doctor directory unavailable")

// FeeResolver resolves the current consultation fee for a doctor.
type FeeResolver interface {
	ResolveFee(ctx context.Context, doctorID string) (float64, error)
}

// Info is the subset of the directory's doctor representation this service
// reads. The directory returns more fields; they are ignored here.
type Info struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Specialization  string  `json:"specialization"`
	ConsultationFee float64 `json:"consultationFee"`
	IsAvailable     bool    `json:"isAvailable"`
}

// Client is an HTTP FeeResolver against the doctor directory service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a directory client with the configured request timeout.
func NewClient(cfg config.DoctorServiceConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// ResolveFee fetches the doctor record and returns its consultation fee.
func (c *Client) ResolveFee(ctx context.Context, doctorID string) (float64, error) {
	url := fmt.Sprintf("%s/api/doctors/%s", c.baseURL, doctorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: directory returned %d", ErrUnavailable, resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if info.ConsultationFee < 0 {
		return 0, fmt.Errorf("%w: negative fee %v", ErrUnavailable, info.ConsultationFee)
	}

	return info.ConsultationFee, nil
}
