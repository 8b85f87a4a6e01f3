package config

import (
	"fmt"
	"strings"
	"time"
)

// LMSConfig points the service at the LMS backend that serves modules
type LMSConfig struct {
	BaseURL    string        `json:"baseUrl"`
	Timeout    time.Duration `json:"timeout"`
	RetryCount int           `json:"retryCount"`
}

// DefaultLMSConfig returns the LMS configuration from the environment
func DefaultLMSConfig() *LMSConfig {
	return &LMSConfig{
		BaseURL:    strings.TrimRight(getEnv("LMS_API_URL", "http://localhost:8000"), "/"),
		Timeout:    getEnvDuration("LMS_TIMEOUT", 10*time.Second),
		RetryCount: getEnvInt("LMS_RETRY_COUNT", 2),
	}
}

// ModuleEndpoint returns the URL of a single module resource
func (c *LMSConfig) ModuleEndpoint(moduleID int) string {
	return fmt.Sprintf("%s/api/v1/modules/%d", c.BaseURL, moduleID)
}
