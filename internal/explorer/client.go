// Package explorer is a client for Etherscan-compatible block explorer APIs
// (Etherscan, Polygonscan, Basescan, ...) used for source verification.
package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/pendergraft/contraconf/internal/config"
	"github.com/pendergraft/contraconf/internal/validation"
)

// Verification outcomes reported by the explorer.
var (
	ErrAlreadyVerified    = errors.New("contract already verified")
	ErrVerificationFailed = errors.New("verification failed")
)

// APIError is a request the explorer answered with an error.
type APIError struct {
	Action     string
	HTTPStatus int
	Message    string
	Result     string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "explorer %s", e.Action)
	if e.HTTPStatus != 0 && e.HTTPStatus != http.StatusOK {
		fmt.Fprintf(&b, " (HTTP %d)", e.HTTPStatus)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Result != "" && e.Result != e.Message {
		b.WriteString(": " + e.Result)
	}
	return b.String()
}

// DefaultRateLimit matches the free-tier limit of Etherscan-family APIs.
const DefaultRateLimit = 5

// Observer is called after every API request.
type Observer func(action string, d time.Duration, err error)

// Client talks to one explorer for one chain.
type Client struct {
	http         *resty.Client
	provider     string
	apiURL       string
	apiKey       string
	chainID      uint64
	limiter      *rate.Limiter
	pollInterval time.Duration
	observe      Observer
	log          *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// WithRateLimit caps requests per second. Zero or less disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithPollInterval sets how often Wait polls the verification status.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// WithObserver registers a callback for request timing.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observe = o
	}
}

// New creates a client from a resolved verification config. It refuses to
// run without an API key rather than fall back to a shared one.
func New(cfg config.VerificationConfig, chainID uint64, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("%w: explorer client for %q needs an API key", config.ErrMissingAPIKey, cfg.ProviderName)
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = config.EtherscanV2API
	}
	// The unified endpoint selects the chain by id.
	if apiURL == config.EtherscanV2API {
		if err := validation.ValidateChainID(chainID); err != nil {
			return nil, fmt.Errorf("explorer %q: %w", cfg.ProviderName, err)
		}
	}

	c := &Client{
		http:         resty.New().SetTimeout(30 * time.Second),
		provider:     cfg.ProviderName,
		apiURL:       apiURL,
		apiKey:       key,
		chainID:      chainID,
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		pollInterval: 5 * time.Second,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetHeader("User-Agent", "contraconf").
		SetLogger(restyLogger{log: c.log.With("component", "explorer"), secret: key})
	return c, nil
}

// Provider returns the configured provider name.
func (c *Client) Provider() string {
	return c.provider
}

// envelope is the common {status, message, result} response shape.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (e *envelope) ok() bool {
	return e.Status == "1"
}

// resultText returns result when it is a JSON string.
func (e *envelope) resultText() string {
	var s string
	if err := json.Unmarshal(e.Result, &s); err != nil {
		return ""
	}
	return s
}

func (c *Client) call(ctx context.Context, method, action string, params map[string]string) (env *envelope, err error) {
	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(action, time.Since(start), err)
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"module": "contract",
		"action": action,
		"apikey": c.apiKey,
	}
	for k, v := range params {
		fields[k] = v
	}

	req := c.http.R().SetContext(ctx)
	if c.chainID != 0 {
		req.SetQueryParam("chainid", strconv.FormatUint(c.chainID, 10))
	}

	var resp *resty.Response
	if method == http.MethodPost {
		resp, err = req.SetFormData(fields).Post(c.apiURL)
	} else {
		resp, err = req.SetQueryParams(fields).Get(c.apiURL)
	}
	if err != nil {
		// url.Error carries the request URL, which may include the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("explorer %s request to %s: %w", action, c.apiURL, err)
	}
	if resp.IsError() {
		return nil, &APIError{
			Action:     action,
			HTTPStatus: resp.StatusCode(),
			Message:    strings.TrimSpace(string(resp.Body())),
		}
	}

	env = &envelope{}
	if err := json.Unmarshal(resp.Body(), env); err != nil {
		return nil, fmt.Errorf("decoding explorer %s response: %w", action, err)
	}
	return env, nil
}

// SourceCode is one entry of a getsourcecode response.
type SourceCode struct {
	SourceCode      string `json:"SourceCode"`
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
	ABI             string `json:"ABI"`
}

// IsVerified reports whether the explorer already has source code for address.
func (c *Client) IsVerified(ctx context.Context, address string) (bool, error) {
	env, err := c.call(ctx, http.MethodGet, "getsourcecode", map[string]string{"address": address})
	if err != nil {
		return false, err
	}
	if !env.ok() {
		return false, &APIError{Action: "getsourcecode", Message: env.Message, Result: env.resultText()}
	}

	var items []SourceCode
	if err := json.Unmarshal(env.Result, &items); err != nil {
		return false, fmt.Errorf("decoding getsourcecode result: %w", err)
	}
	return len(items) > 0 && items[0].SourceCode != "", nil
}

// SubmitRequest is a standard-json-input verification submission.
type SubmitRequest struct {
	Address         string
	ContractName    string // "src/Token.sol:Token"
	CompilerVersion string // "0.8.20+commit.a1b10f9e", "v" prefix optional
	StandardJSON    []byte
	ConstructorArgs string // ABI-encoded hex, "0x" prefix optional
}

// Submit sends source code for verification and returns the receipt GUID.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	version := req.CompilerVersion
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}

	env, err := c.call(ctx, http.MethodPost, "verifysourcecode", map[string]string{
		"contractaddress": req.Address,
		"sourceCode":      string(req.StandardJSON),
		"codeformat":      "solidity-standard-json-input",
		"contractname":    req.ContractName,
		"compilerversion": version,
		// misspelled in the upstream API
		"constructorArguements": strings.TrimPrefix(req.ConstructorArgs, "0x"),
	})
	if err != nil {
		return "", err
	}

	result := env.resultText()
	if !env.ok() {
		if isAlreadyVerified(result) || isAlreadyVerified(env.Message) {
			return "", ErrAlreadyVerified
		}
		return "", &APIError{Action: "verifysourcecode", Message: env.Message, Result: result}
	}
	if result == "" {
		return "", &APIError{Action: "verifysourcecode", Message: "empty receipt GUID"}
	}
	return result, nil
}

// State is the progress of a submitted verification.
type State string

const (
	StatePending         State = "pending"
	StateVerified        State = "verified"
	StateAlreadyVerified State = "already_verified"
	StateFailed          State = "failed"
)

// Status is a checkverifystatus answer.
type Status struct {
	State   State
	Message string
}

// Done reports whether polling can stop.
func (s Status) Done() bool {
	return s.State != StatePending
}

// Status fetches the state of a submission. The explorer encodes it in the
// result text, not in the status field.
func (c *Client) Status(ctx context.Context, guid string) (Status, error) {
	env, err := c.call(ctx, http.MethodGet, "checkverifystatus", map[string]string{"guid": guid})
	if err != nil {
		return Status{}, err
	}

	result := env.resultText()
	switch {
	case strings.Contains(strings.ToLower(result), "pending"):
		return Status{State: StatePending, Message: result}, nil
	case strings.HasPrefix(result, "Pass"):
		return Status{State: StateVerified, Message: result}, nil
	case isAlreadyVerified(result):
		return Status{State: StateAlreadyVerified, Message: result}, nil
	case strings.HasPrefix(result, "Fail"):
		return Status{State: StateFailed, Message: result}, nil
	}
	return Status{}, &APIError{Action: "checkverifystatus", Message: env.Message, Result: result}
}

// Wait polls Status until the submission passes or fails, or ctx ends.
func (c *Client) Wait(ctx context.Context, guid string) (Status, error) {
	for {
		st, err := c.Status(ctx, guid)
		if err != nil {
			return Status{}, err
		}
		switch st.State {
		case StateVerified, StateAlreadyVerified:
			return st, nil
		case StateFailed:
			return st, fmt.Errorf("%w: %s", ErrVerificationFailed, st.Message)
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// AddressURL returns the explorer page of a verified contract.
func AddressURL(browserURL, address string) string {
	if browserURL == "" {
		return ""
	}
	return strings.TrimRight(browserURL, "/") + "/address/" + address + "#code"
}

func isAlreadyVerified(s string) bool {
	return strings.Contains(strings.ToLower(s), "already verified")
}
