// Package rabbit wraps the single RabbitMQ management-API call the check
// needs: listing the queues of one virtual host. It is the sole entry point
// for broker communication; transport and protocol failures are classified
// here and nowhere else.
package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rabbitops/rmqcheck/internal/config"
	"github.com/rabbitops/rmqcheck/internal/models"
)

// FetchErrorKind classifies how the queue listing failed.
type FetchErrorKind string

const (
	KindNetworkUnreachable FetchErrorKind = "network_unreachable"
	KindNotFound           FetchErrorKind = "not_found"
	KindUnauthorized       FetchErrorKind = "unauthorized"
	KindUnhandledHTTP      FetchErrorKind = "unhandled_http"
)

// FetchError is a classified queue-listing failure. Message is operator-facing
// and rendered verbatim in the status line, so the texts are load-bearing.
type FetchError struct {
	Kind    FetchErrorKind
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	return e.Message
}

// QueueFetcher lists all queues in a virtual host. Implementations make
// exactly one attempt; failures are never retried.
type QueueFetcher interface {
	ListQueues(ctx context.Context, vhost string) ([]models.QueueRecord, error)
}

// Client is the production QueueFetcher backed by the management HTTP API.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient builds a Client from the loaded configuration. A configured
// timeout bounds only the listing call; zero keeps the transport default.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  cfg.BaseURL(),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger:   logger,
	}
}

// ListQueues implements QueueFetcher. It returns the raw listing exactly as
// reported, unfiltered; filtering is the evaluator's job.
//
// Failures are classified into *FetchError: any transport error (including a
// timeout) is network_unreachable, protocol statuses 404 and 401 map to
// not_found and unauthorized, and every other non-success status is
// unhandled_http carrying the status code. A body that fails to decode after
// a success status is not a FetchError; that is an internal fault for the
// process boundary to report.
func (c *Client) ListQueues(ctx context.Context, vhost string) ([]models.QueueRecord, error) {
	endpoint := fmt.Sprintf("%s/api/queues/%s", c.baseURL, url.PathEscape(vhost))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build queue listing request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	c.logger.Debug("listing queues", "endpoint", endpoint, "vhost", vhost)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("queue listing transport failure", "err", err)
		return nil, &FetchError{
			Kind:    KindNetworkUnreachable,
			Message: "Can not communicate with the broker.",
		}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		c.logger.Debug("queue listing rejected", "status", resp.StatusCode)
		return nil, err
	}

	var records []models.QueueRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode queue listing: %w", err)
	}
	return records, nil
}

// classifyStatus returns the FetchError for a non-success protocol status,
// or nil for 2xx.
func classifyStatus(status int) *FetchError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return &FetchError{Kind: KindNotFound, Status: status, Message: "Queue not found."}
	case status == http.StatusUnauthorized:
		return &FetchError{Kind: KindUnauthorized, Status: status, Message: "Unauthorized."}
	default:
		return &FetchError{
			Kind:    KindUnhandledHTTP,
			Status:  status,
			Message: fmt.Sprintf("Unhandled HTTP error, status: %d", status),
		}
	}
}
