package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/contraconf/internal/config"
)

const testKey = "TESTAPIKEY123456"

type fakeExplorer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []url.Values
	queries  []url.Values
	methods  []string
}

// newFakeExplorer serves handler(action, form) as the JSON response body.
func newFakeExplorer(t *testing.T, handler func(action string, form url.Values) (int, any)) *fakeExplorer {
	t.Helper()
	f := &fakeExplorer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, r.Form)
		f.queries = append(f.queries, r.URL.Query())
		f.methods = append(f.methods, r.Method)
		f.mu.Unlock()

		status, body := handler(r.Form.Get("action"), r.Form)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeExplorer) last() (string, url.Values, url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.requests) - 1
	return f.methods[n], f.requests[n], f.queries[n]
}

func newTestClient(t *testing.T, apiURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithRateLimit(0), WithPollInterval(time.Millisecond)}, opts...)
	c, err := New(config.VerificationConfig{
		ProviderName: "polygonscan",
		APIKey:       testKey,
		APIURL:       apiURL,
	}, 137, opts...)
	require.NoError(t, err)
	return c
}

func ok(result any) (int, any) {
	return http.StatusOK, map[string]any{"status": "1", "message": "OK", "result": result}
}

func notOK(result string) (int, any) {
	return http.StatusOK, map[string]any{"status": "0", "message": "NOTOK", "result": result}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		_, err := New(config.VerificationConfig{ProviderName: "polygonscan", APIKey: key}, 137)
		require.ErrorIs(t, err, config.ErrMissingAPIKey)
	}

	c, err := New(config.VerificationConfig{ProviderName: "polygonscan", APIKey: testKey}, 137)
	require.NoError(t, err)
	assert.Equal(t, config.EtherscanV2API, c.apiURL)
	assert.Equal(t, "polygonscan", c.Provider())
}

func TestNew_ChainIDForUnifiedEndpoint(t *testing.T) {
	_, err := New(config.VerificationConfig{ProviderName: "etherscan", APIKey: testKey}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain ID")

	_, err = New(config.VerificationConfig{ProviderName: "etherscan", APIKey: testKey, APIURL: config.EtherscanV2API}, 0)
	require.Error(t, err)

	c, err := New(config.VerificationConfig{ProviderName: "blockscout", APIKey: testKey, APIURL: "https://explorer.example/api"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://explorer.example/api", c.apiURL)
}

func TestIsVerified(t *testing.T) {
	const addr = "0x1234567890123456789012345678901234567890"

	tests := []struct {
		name   string
		result []SourceCode
		want   bool
	}{
		{
			name:   "verified",
			result: []SourceCode{{SourceCode: "contract Token {}", ContractName: "Token"}},
			want:   true,
		},
		{
			name:   "not verified",
			result: []SourceCode{{SourceCode: "", ABI: "Contract source code not verified"}},
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeExplorer(t, func(action string, _ url.Values) (int, any) {
				return ok(tt.result)
			})
			c := newTestClient(t, srv.URL)

			got, err := c.IsVerified(context.Background(), addr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			method, form, query := srv.last()
			assert.Equal(t, http.MethodGet, method)
			assert.Equal(t, "getsourcecode", form.Get("action"))
			assert.Equal(t, "contract", form.Get("module"))
			assert.Equal(t, addr, form.Get("address"))
			assert.Equal(t, testKey, form.Get("apikey"))
			assert.Equal(t, "137", query.Get("chainid"))
		})
	}

	t.Run("invalid key", func(t *testing.T) {
		srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
			return notOK("Invalid API Key")
		})
		c := newTestClient(t, srv.URL)

		_, err := c.IsVerified(context.Background(), addr)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "getsourcecode", apiErr.Action)
		assert.Contains(t, err.Error(), "Invalid API Key")
	})
}

func TestSubmit(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
			return ok("abc123guid")
		})
		c := newTestClient(t, srv.URL)

		guid, err := c.Submit(context.Background(), SubmitRequest{
			Address:         "0x1234567890123456789012345678901234567890",
			ContractName:    "src/Token.sol:Token",
			CompilerVersion: "0.8.20+commit.a1b10f9e",
			StandardJSON:    []byte(`{"language":"Solidity"}`),
			ConstructorArgs: "0x0000000000000000000000000000000000000000000000000000000000000001",
		})
		require.NoError(t, err)
		assert.Equal(t, "abc123guid", guid)

		method, form, query := srv.last()
		assert.Equal(t, http.MethodPost, method)
		assert.Equal(t, "verifysourcecode", form.Get("action"))
		assert.Equal(t, "solidity-standard-json-input", form.Get("codeformat"))
		assert.Equal(t, "src/Token.sol:Token", form.Get("contractname"))
		assert.Equal(t, "v0.8.20+commit.a1b10f9e", form.Get("compilerversion"))
		assert.Equal(t, `{"language":"Solidity"}`, form.Get("sourceCode"))
		assert.Equal(t, "0000000000000000000000000000000000000000000000000000000000000001", form.Get("constructorArguements"))
		assert.Equal(t, "137", query.Get("chainid"))
		assert.Empty(t, query.Get("apikey"), "API key belongs in the form body")
	})

	t.Run("already verified", func(t *testing.T) {
		srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
			return notOK("Contract source code already verified")
		})
		c := newTestClient(t, srv.URL)

		_, err := c.Submit(context.Background(), SubmitRequest{CompilerVersion: "v0.8.20"})
		require.ErrorIs(t, err, ErrAlreadyVerified)
	})

	t.Run("rejected", func(t *testing.T) {
		srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
			return notOK("Unable to locate ContractCode at 0x1234")
		})
		c := newTestClient(t, srv.URL)

		_, err := c.Submit(context.Background(), SubmitRequest{})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Result, "Unable to locate ContractCode")
	})
}

func TestStatus(t *testing.T) {
	tests := []struct {
		result string
		want   State
	}{
		{"Pending in queue", StatePending},
		{"Pass - Verified", StateVerified},
		{"Already Verified", StateAlreadyVerified},
		{"Fail - Unable to verify", StateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.result, func(t *testing.T) {
			srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
				// status is "0" for pending and failure alike
				return notOK(tt.result)
			})
			c := newTestClient(t, srv.URL)

			st, err := c.Status(context.Background(), "guid")
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.State)
			assert.Equal(t, tt.result, st.Message)
			assert.Equal(t, tt.want != StatePending, st.Done())

			_, form, _ := srv.last()
			assert.Equal(t, "guid", form.Get("guid"))
		})
	}

	t.Run("unknown answer", func(t *testing.T) {
		srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
			return notOK("Max rate limit reached")
		})
		c := newTestClient(t, srv.URL)

		_, err := c.Status(context.Background(), "guid")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
	})
}

func TestWait(t *testing.T) {
	t.Run("pending then pass", func(t *testing.T) {
		var calls atomic.Int32
		srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
			if calls.Add(1) < 3 {
				return notOK("Pending in queue")
			}
			return ok("Pass - Verified")
		})
		c := newTestClient(t, srv.URL)

		st, err := c.Wait(context.Background(), "guid")
		require.NoError(t, err)
		assert.Equal(t, StateVerified, st.State)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("fail", func(t *testing.T) {
		srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
			return notOK("Fail - Unable to verify. Compiled contract deployment bytecode does NOT match")
		})
		c := newTestClient(t, srv.URL)

		st, err := c.Wait(context.Background(), "guid")
		require.ErrorIs(t, err, ErrVerificationFailed)
		assert.Equal(t, StateFailed, st.State)
	})

	t.Run("context cancelled while pending", func(t *testing.T) {
		srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
			return notOK("Pending in queue")
		})
		c := newTestClient(t, srv.URL, WithPollInterval(time.Hour))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.Wait(ctx, "guid")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestHTTPErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
			return http.StatusBadGateway, map[string]any{"error": "upstream"}
		})
		c := newTestClient(t, srv.URL)

		_, err := c.IsVerified(context.Background(), "0x1234567890123456789012345678901234567890")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus)
		assert.Contains(t, err.Error(), "HTTP 502")
	})

	t.Run("transport error hides the API key", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c := newTestClient(t, srv.URL)

		_, err := c.IsVerified(context.Background(), "0x1234567890123456789012345678901234567890")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), testKey)
	})
}

func TestObserverAndRateLimit(t *testing.T) {
	srv := newFakeExplorer(t, func(string, url.Values) (int, any) {
		return ok([]SourceCode{})
	})

	var mu sync.Mutex
	var seen []string
	var errs int
	c := newTestClient(t, srv.URL, WithObserver(func(action string, d time.Duration, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, action)
		if err != nil {
			errs++
		}
	}), WithRateLimit(1000))

	for i := 0; i < 3; i++ {
		_, err := c.IsVerified(context.Background(), "0x1234567890123456789012345678901234567890")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"getsourcecode", "getsourcecode", "getsourcecode"}, seen)
	assert.Zero(t, errs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.IsVerified(ctx, "0x1234567890123456789012345678901234567890")
	require.True(t, errors.Is(err, context.Canceled))
}

func TestAddressURL(t *testing.T) {
	assert.Equal(t, "https://polygonscan.com/address/0xabc#code", AddressURL("https://polygonscan.com/", "0xabc"))
	assert.Empty(t, AddressURL("", "0xabc"))
}

func TestRestyLoggerRedactsKey(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := newTestClient(t, srv.URL, WithLogger(log))

	_, err := c.IsVerified(context.Background(), "0x1234567890123456789012345678901234567890")
	require.Error(t, err)
	assert.NotContains(t, buf.String(), testKey)

	l := restyLogger{log: log, secret: testKey}
	assert.Equal(t, "GET https://x/api?apikey=****", l.redact("GET %s", []any{"https://x/api?apikey=" + testKey}))
}
