package loggers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lidq92/compresstrain/plot"
)

// Sidecar sends figures to the sidecar plotting application over HTTP. It
// implements only the figure capability. A disabled sidecar accepts and
// drops figures so that a run can proceed without the service.
type Sidecar struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	enabled    bool
}

// SidecarConfig contains configuration for the sidecar figure sink.
type SidecarConfig struct {
	BaseURL       string        `json:"base_url"`
	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
	RetryDelay    time.Duration `json:"retry_delay"`
}

// DefaultSidecarConfig returns default configuration for the sidecar sink.
func DefaultSidecarConfig() SidecarConfig {
	return SidecarConfig{
		BaseURL:       "http://localhost:8080",
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
	}
}

// figureResponse is the sidecar's reply to a figure upload.
type figureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	PlotURL string `json:"plot_url,omitempty"`
	ViewURL string `json:"view_url,omitempty"`
}

// NewSidecar creates a sidecar figure sink. It starts disabled; call
// Enable after the service is known to be reachable.
func NewSidecar(config SidecarConfig) *Sidecar {
	return &Sidecar{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		retries:    config.RetryAttempts,
		retryDelay: config.RetryDelay,
	}
}

// Name identifies the sink.
func (s *Sidecar) Name() string {
	return "sidecar"
}

// Enable enables figure uploads.
func (s *Sidecar) Enable() {
	s.enabled = true
}

// Disable disables figure uploads.
func (s *Sidecar) Disable() {
	s.enabled = false
}

// IsEnabled returns whether uploads are enabled.
func (s *Sidecar) IsEnabled() bool {
	return s.enabled
}

// CheckHealth checks if the plotting service is available.
func (s *Sidecar) CheckHealth() error {
	url := fmt.Sprintf("%s/health", s.baseURL)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send health check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// LogFigure uploads the figure, retrying transient failures.
func (s *Sidecar) LogFigure(name string, fig *plot.Figure) error {
	if !s.enabled {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		if err := s.send(name, fig); err != nil {
			lastErr = err
			if attempt < s.retries-1 {
				time.Sleep(s.retryDelay)
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("failed to send figure %q after %d attempts: %w", name, s.retries, lastErr)
}

func (s *Sidecar) send(name string, fig *plot.Figure) error {
	payload := struct {
		Name   string       `json:"name"`
		Figure *plot.Figure `json:"figure"`
	}{Name: name, Figure: fig}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal figure payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/figure", s.baseURL)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "compresstrain")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var figResp figureResponse
	if err := json.Unmarshal(respBody, &figResp); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP request failed with status %d: %s", resp.StatusCode, figResp.Message)
	}
	return nil
}
