//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/pws-history-proxy/internal/client"
	"github.com/kjstillabower/pws-history-proxy/internal/service"
)

// IntegrationTestConfig holds configuration for tests against the live PWS API.
type IntegrationTestConfig struct {
	APIKey    string
	APIURL    string
	StationID string
	Date      string // YYYYMMDD
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WU_API_KEY is not set. Station defaults to WU_STATION_ID or
// IMADRID123, date to yesterday (UTC).
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	apiKey := os.Getenv("WU_API_KEY")
	if apiKey == "" {
		t.Skip("WU_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WU_API_URL")
	if apiURL == "" {
		apiURL = client.DefaultAPIURL
	}
	station := os.Getenv("WU_STATION_ID")
	if station == "" {
		station = "IMADRID123"
	}

	return IntegrationTestConfig{
		APIKey:    apiKey,
		APIURL:    apiURL,
		StationID: station,
		Date:      time.Now().UTC().AddDate(0, 0, -1).Format("20060102"),
	}
}

// SetupIntegrationClient creates a client for the live API.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) *client.WundergroundClient {
	t.Helper()
	c, err := client.NewWundergroundClient(cfg.APIKey, cfg.APIURL, 10*time.Second)
	if err != nil {
		t.Fatalf("NewWundergroundClient() error = %v", err)
	}
	return c
}

// SetupIntegrationService wires a HistoryService over the live client.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) *service.HistoryService {
	t.Helper()
	return service.NewHistoryService(SetupIntegrationClient(t, cfg))
}
