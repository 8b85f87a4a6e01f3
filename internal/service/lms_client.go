package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-resty/resty/v2"

	"trainhub/internal/config"
	"trainhub/internal/model"
)

var (
	ErrModuleNotFound = errors.New("module not found")
	ErrLMSUnavailable = errors.New("lms backend unavailable")
)

// ModuleFetcher loads a module resource on behalf of a learner
type ModuleFetcher interface {
	GetModule(ctx context.Context, token string, moduleID int) (*model.Module, error)
}

// LMSClient wraps LMS backend API calls
type LMSClient struct {
	cfg    *config.LMSConfig
	client *resty.Client
}

// NewLMSClient creates a new LMS backend client
func NewLMSClient(cfg *config.LMSConfig) *LMSClient {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		})

	return &LMSClient{
		cfg:    cfg,
		client: client,
	}
}

// GetModule fetches GET /api/v1/modules/{id} with the learner's bearer token
func (c *LMSClient) GetModule(ctx context.Context, token string, moduleID int) (*model.Module, error) {
	var module model.Module
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&module).
		Get(c.cfg.ModuleEndpoint(moduleID))
	if err != nil {
		log.Printf("[LMS Client] GET module %d failed: %v", moduleID, err)
		return nil, fmt.Errorf("%w: %v", ErrLMSUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrModuleNotFound
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.IsError():
		log.Printf("[LMS Client] GET module %d: status %d: %s", moduleID, resp.StatusCode(), resp.String())
		return nil, fmt.Errorf("%w: status %d", ErrLMSUnavailable, resp.StatusCode())
	}

	if module.ID == 0 {
		module.ID = moduleID
	}
	return &module, nil
}
