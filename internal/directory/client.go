// internal/directory/client.go
package directory

import (
	"context"
	"fmt"
	"net/url"
	"time"

	stderrors "comms-delivery/internal/common/errors"
	commonhttp "comms-delivery/internal/common/http"
	"comms-delivery/internal/common/logger"
)

// Context keys the directory service understands.
const (
	ContextUser       = "user"
	ContextOrgContact = "org_contact"
)

// ContactRecord is a directory entry with the addresses we can deliver to.
// A record may carry either, both, or neither address.
type ContactRecord struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Lookup resolves contact records for an identity. Implemented by the HTTP
// client; faked in tests.
type Lookup interface {
	FindContacts(ctx context.Context, contextKey, relatedEntityID string) ([]ContactRecord, error)
}

// Client is the HTTP directory lookup.
type Client struct {
	http    *commonhttp.Client
	baseURL string
	log     logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		http:    commonhttp.NewClient(timeout),
		baseURL: baseURL,
		log:     log.WithFields(map[string]interface{}{"component": "directory"}),
	}
}

type contactsResponse struct {
	Contacts []ContactRecord `json:"contacts"`
}

func (c *Client) FindContacts(ctx context.Context, contextKey, relatedEntityID string) ([]ContactRecord, error) {
	u := fmt.Sprintf("%s/contacts?context=%s&entity=%s",
		c.baseURL, url.QueryEscape(contextKey), url.QueryEscape(relatedEntityID))

	var resp contactsResponse
	if err := c.http.GetJSON(ctx, u, &resp); err != nil {
		return nil, stderrors.NewDirectoryLookupError(
			fmt.Errorf("lookup %s/%s: %w", contextKey, relatedEntityID, err))
	}

	c.log.Debug("directory lookup completed", map[string]interface{}{
		"contextKey": contextKey,
		"entityId":   relatedEntityID,
		"records":    len(resp.Contacts),
	})
	return resp.Contacts, nil
}
