package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher records calls and returns a canned result
type stubFetcher struct {
	calls []string
	body  string
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	return f.body, f.err
}

func strPtr(s string) *string { return &s }

func quietLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func newManaged(f Fetcher, opts ...Option) *Relay {
	opts = append([]Option{WithVariant(Managed), WithToken("secret"), WithLogger(quietLogger())}, opts...)
	return New(f, opts...)
}

func assertManagedHeaders(t *testing.T, resp *Response) {
	t.Helper()
	assert.Equal(t, map[string]string{
		"Content-Type":  "text/plain",
		"Cache-Control": "max-age=600",
	}, resp.Headers)
}

func TestManagedValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		params Params
		body   string
	}{
		{"MissingToken", Params{URL: strPtr("http://a.example")}, BadTokenBody},
		{"WrongToken", Params{URL: strPtr("http://a.example"), Token: strPtr("nope")}, BadTokenBody},
		{"EmptyToken", Params{URL: strPtr("http://a.example"), Token: strPtr("")}, BadTokenBody},
		{"TokenCheckedFirst", Params{Token: strPtr("nope")}, BadTokenBody},
		{"MissingURL", Params{Token: strPtr("secret")}, "Bad url=None"},
		{"EmptyURL", Params{Token: strPtr("secret"), URL: strPtr("")}, "Bad url=''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubFetcher{body: "unused"}
			r := newManaged(f)

			resp, err := r.Handle(ctx, tt.params)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.body, resp.Body)
			assertManagedHeaders(t, resp)
			assert.Empty(t, f.calls, "fetch must not be attempted")
		})
	}
}

func TestManagedRejectsWhenNoSecretConfigured(t *testing.T) {
	f := &stubFetcher{}
	r := New(f, WithVariant(Managed), WithLogger(quietLogger()))

	resp, err := r.Handle(context.Background(), Params{URL: strPtr("http://a.example"), Token: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, BadTokenBody, resp.Body)
	assert.Empty(t, f.calls)
}

func TestManagedRelay(t *testing.T) {
	ctx := context.Background()
	valid := Params{URL: strPtr("http://a.example/feed"), Token: strPtr("secret")}

	t.Run("Success", func(t *testing.T) {
		f := &stubFetcher{body: "hello"}
		resp, err := newManaged(f).Handle(ctx, valid)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "hello", resp.Body)
		assertManagedHeaders(t, resp)
		assert.Equal(t, []string{"http://a.example/feed"}, f.calls)
	})

	t.Run("SoftFailureBecomesEmptyOK", func(t *testing.T) {
		f := &stubFetcher{err: &UpstreamStatusError{URL: "http://a.example/feed", StatusCode: 500}}
		resp, err := newManaged(f).Handle(ctx, valid)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "", resp.Body)
		assertManagedHeaders(t, resp)
	})

	t.Run("CustomMaxAge", func(t *testing.T) {
		f := &stubFetcher{body: "x"}
		resp, err := newManaged(f, WithCacheMaxAge(60)).Handle(ctx, valid)
		require.NoError(t, err)
		assert.Equal(t, "max-age=60", resp.Headers["Cache-Control"])
	})

	t.Run("NoMemoization", func(t *testing.T) {
		f := &stubFetcher{body: "x"}
		r := newManaged(f)
		for i := 0; i < 3; i++ {
			_, err := r.Handle(ctx, valid)
			require.NoError(t, err)
		}
		assert.Len(t, f.calls, 3)
	})
}

func TestFaultPolicy(t *testing.T) {
	ctx := context.Background()
	valid := Params{URL: strPtr("http://a.example/feed"), Token: strPtr("secret")}
	fault := NewFetchFaultError("http://a.example/feed", errors.New("connection refused"))

	t.Run("PropagateByDefault", func(t *testing.T) {
		resp, err := newManaged(&stubFetcher{err: fault}).Handle(ctx, valid)
		assert.Nil(t, resp)
		require.Error(t, err)
		assert.True(t, IsFetchFault(err))
		assert.False(t, IsSoftFailure(err))

		var faultErr *FetchFaultError
		require.ErrorAs(t, err, &faultErr)
		assert.Equal(t, "http://a.example/feed", faultErr.URL)
	})

	t.Run("PropagateWrapsForeignErrors", func(t *testing.T) {
		_, err := newManaged(&stubFetcher{err: errors.New("boom")}).Handle(ctx, valid)
		require.Error(t, err)
		assert.True(t, IsFetchFault(err))
	})

	t.Run("Empty", func(t *testing.T) {
		resp, err := newManaged(&stubFetcher{err: fault}, WithFaultPolicy(FaultEmpty)).Handle(ctx, valid)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "", resp.Body)
		assertManagedHeaders(t, resp)
	})

	t.Run("BadGateway", func(t *testing.T) {
		resp, err := newManaged(&stubFetcher{err: fault}, WithFaultPolicy(FaultBadGateway)).Handle(ctx, valid)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "", resp.Body)
		assertManagedHeaders(t, resp)
	})
}

func TestParseFaultPolicy(t *testing.T) {
	for in, want := range map[string]FaultPolicy{
		"":            FaultPropagate,
		"propagate":   FaultPropagate,
		" Empty ":     FaultEmpty,
		"bad-gateway": FaultBadGateway,
	} {
		got, err := ParseFaultPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFaultPolicy("retry")
	assert.Error(t, err)
}

func TestStandalone(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingURL", func(t *testing.T) {
		f := &stubFetcher{}
		r := New(f, WithLogger(quietLogger()))
		resp, err := r.Handle(ctx, Params{})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "", resp.Body)
		assert.Empty(t, resp.Headers)
		assert.Empty(t, f.calls)
	})

	t.Run("TokenNotRequired", func(t *testing.T) {
		f := &stubFetcher{body: "feed"}
		r := New(f, WithLogger(quietLogger()))
		resp, err := r.Handle(ctx, Params{URL: strPtr("http://a.example")})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "feed", resp.Body)
		assert.Equal(t, map[string]string{
			"Content-Type":                "text/plain",
			"Access-Control-Allow-Origin": "*",
		}, resp.Headers)
	})
}

func TestRelayEndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("  hello  "))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("oops"))
		}
	}))
	defer upstream.Close()

	r := newManaged(NewHTTPFetcher())

	resp, err := r.Handle(context.Background(), Params{URL: strPtr(upstream.URL + "/ok"), Token: strPtr("secret")})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", resp.Body)

	resp, err = r.Handle(context.Background(), Params{URL: strPtr(upstream.URL + "/fail"), Token: strPtr("secret")})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", resp.Body)
}
