package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/osmank/commentsweep/errors"
)

const (
	defaultBaseURL  = "https://oauth.reddit.com"
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	// tokenExpirySlack is subtracted from the token lifetime so a token
	// about to expire is never used on the wire.
	tokenExpirySlack = 1 * time.Minute
)

// Credentials are the reddit application credentials used for the OAuth
// client credentials grant.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

// Config is the configuration of the Client.
type Config struct {
	Credentials Credentials
	// HTTPClient is the client used for every request. Defaults to a
	// client with a 30s timeout.
	HTTPClient *http.Client
	// BaseURL is the API endpoint, overridable for tests.
	BaseURL string
	// TokenURL is the OAuth token endpoint, overridable for tests.
	TokenURL string
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}

	if c.TokenURL == "" {
		c.TokenURL = defaultTokenURL
	}
}

// Submission is the metadata of a reddit submission the sweep cares about.
type Submission struct {
	ID          string
	URL         string
	NumComments int
	Locked      bool
	Archived    bool
}

// Client is a minimal reddit API client that knows how to authenticate
// with the client credentials grant and fetch submission metadata.
type Client struct {
	cfg Config

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient returns a new reddit Client.
func NewClient(cfg Config) *Client {
	cfg.defaults()

	return &Client{cfg: cfg}
}

// Submission fetches the metadata of the submission behind the received
// URL. A rate limited or failed response is returned as an
// *errors.APIError, a network failure as an *errors.TransportError.
func (c *Client) Submission(ctx context.Context, submissionURL string) (*Submission, error) {
	id, err := SubmissionID(submissionURL)
	if err != nil {
		return nil, err
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/info?id=t3_%s", c.cfg.BaseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.cfg.Credentials.UserAgent)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, &errors.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &errors.APIError{StatusCode: resp.StatusCode}
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data struct {
					ID          string `json:"id"`
					NumComments int    `json:"num_comments"`
					Locked      bool   `json:"locked"`
					Archived    bool   `json:"archived"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding submission listing: %w", err)
	}

	if len(listing.Data.Children) == 0 {
		return nil, fmt.Errorf("%w: t3_%s", ErrNotFound, id)
	}

	data := listing.Data.Children[0].Data
	return &Submission{
		ID:          data.ID,
		URL:         submissionURL,
		NumComments: data.NumComments,
		Locked:      data.Locked,
		Archived:    data.Archived,
	}, nil
}

// accessToken returns a cached application token, requesting a new one
// from the token endpoint when the cached one is missing or about to
// expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{"grant_type": []string{"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Credentials.ClientID, c.cfg.Credentials.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.Credentials.UserAgent)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", &errors.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return "", &errors.APIError{StatusCode: resp.StatusCode}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty token")
	}

	c.token = token.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpirySlack)

	return c.token, nil
}
