package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/circuit"
)

const testProvider = integration.ProviderBitbucket

func TestAuthChain_FallsBackAfterRejection(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	chain := NewAuthChain(BearerCredential("first", "bad"), BearerCredential("second", "good"))
	client := NewConfig(WithBaseURL(srv.URL)).Client(testProvider, "", WithAuth(chain))

	var out struct{ OK bool }
	require.NoError(t, client.Get(context.Background(), "/workspace", nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, []string{"Bearer bad", "Bearer good"}, calls)

	name, ok := chain.Preferred()
	require.True(t, ok)
	assert.Equal(t, "second", name)

	calls = nil
	require.NoError(t, client.Get(context.Background(), "/workspace", nil, &out))
	assert.Equal(t, []string{"Bearer good"}, calls, "accepted credential is tried first")
}

func TestAuthChain_AllRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	chain := NewAuthChain(BearerCredential("a", "x"), BasicCredential("b", "user", "pass"))
	client := NewConfig(WithBaseURL(srv.URL)).Client(testProvider, "", WithAuth(chain))

	err := client.Get(context.Background(), "/workspace", nil, nil)
	require.Error(t, err)
	ce := AsError(testProvider, err)
	assert.Equal(t, CategoryAuthentication, ce.Category)
	assert.False(t, ce.Retryable)
	assert.Equal(t, testProvider, ce.Provider)
}

func TestAuthChain_OtherStatusFailsImmediately(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	chain := NewAuthChain(BearerCredential("a", "x"), BearerCredential("b", "y"))
	client := NewConfig(WithBaseURL(srv.URL)).Client(testProvider, "", WithAuth(chain))

	err := client.Get(context.Background(), "/workspace", nil, nil)
	ce := AsError(testProvider, err)
	assert.Equal(t, CategoryTransient, ce.Category)
	assert.True(t, ce.Retryable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAuthChain_NoCandidates(t *testing.T) {
	chain := NewAuthChain(BearerCredential("empty", ""))
	assert.Equal(t, 0, chain.Len())

	err := chain.Execute(func(string) error { return nil })
	assert.True(t, IsCategory(err, CategoryConfiguration))
}

func TestCategoryForStatus(t *testing.T) {
	tests := map[int]Category{
		http.StatusUnauthorized:        CategoryAuthentication,
		http.StatusForbidden:           CategoryAuthentication,
		http.StatusNotFound:            CategoryNotFound,
		http.StatusTooManyRequests:     CategoryTransient,
		http.StatusInternalServerError: CategoryTransient,
		http.StatusServiceUnavailable:  CategoryTransient,
		http.StatusBadRequest:          CategoryConfiguration,
		http.StatusConflict:            CategoryConfiguration,
	}
	for code, expected := range tests {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			assert.Equal(t, expected, CategoryForStatus(code))
		})
	}
}

func TestAsError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, AsError(testProvider, nil))
	})

	t.Run("deadline is transient", func(t *testing.T) {
		ce := AsError(testProvider, fmt.Errorf("call: %w", context.DeadlineExceeded))
		assert.Equal(t, CategoryTransient, ce.Category)
		assert.True(t, ce.Retryable)
	})

	t.Run("status error keeps its status", func(t *testing.T) {
		err := &StatusError{Method: http.MethodGet, Path: "/x", StatusCode: http.StatusNotFound}
		ce := AsError(testProvider, err)
		assert.Equal(t, CategoryNotFound, ce.Category)
		assert.True(t, HasStatus(ce, http.StatusNotFound))
	})

	t.Run("existing error gets provider", func(t *testing.T) {
		ce := AsError(testProvider, &Error{Category: CategoryUnsupported})
		assert.Equal(t, testProvider, ce.Provider)
	})
}

func TestHTTPClient_TimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := NewConfig(WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond)).Client(testProvider, "")
	err := client.Get(context.Background(), "/slow", nil, nil)
	require.Error(t, err)
	assert.Equal(t, CategoryTransient, AsError(testProvider, err).Category)
}

func TestHTTPClient_BreakerPausesCalls(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	breaker := circuit.New("bitbucket", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	client := NewConfig(WithBaseURL(srv.URL), WithBreaker(breaker)).Client(testProvider, "")

	for range 2 {
		_ = client.Get(context.Background(), "/", nil, nil)
	}
	require.True(t, breaker.IsOpen())

	err := client.Get(context.Background(), "/", nil, nil)
	assert.True(t, IsCategory(err, CategoryTransient))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestPaginate(t *testing.T) {
	t.Run("follows cursors to the end", func(t *testing.T) {
		pages := map[string]Page[int]{
			"":   {Items: []int{1, 2}, Next: "p2"},
			"p2": {Items: []int{3}, Next: "p3"},
			"p3": {Items: []int{4}},
		}
		items, err := Paginate(context.Background(), func(_ context.Context, cursor string) (Page[int], error) {
			return pages[cursor], nil
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4}, items)
	})

	t.Run("stops at max pages", func(t *testing.T) {
		calls := 0
		items, err := Paginate(context.Background(), func(_ context.Context, cursor string) (Page[int], error) {
			calls++
			return Page[int]{Items: []int{calls}, Next: strconv.Itoa(calls)}, nil
		}, 3)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2, 3}, items)
	})

	t.Run("default cap applies to endless providers", func(t *testing.T) {
		calls := 0
		_, err := Paginate(context.Background(), func(_ context.Context, cursor string) (Page[int], error) {
			calls++
			return Page[int]{Next: strconv.Itoa(calls)}, nil
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxPages, calls)
	})

	t.Run("repeated cursor stops", func(t *testing.T) {
		calls := 0
		_, err := Paginate(context.Background(), func(_ context.Context, cursor string) (Page[int], error) {
			calls++
			return Page[int]{Items: []int{1}, Next: "same"}, nil
		}, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("propagates fetch errors", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Paginate(context.Background(), func(context.Context, string) (Page[int], error) {
			return Page[int]{}, boom
		}, 0)
		assert.ErrorIs(t, err, boom)
	})
}

func TestFindFirst_StopsEarly(t *testing.T) {
	calls := 0
	found, ok, err := FindFirst(context.Background(), func(_ context.Context, cursor string) (Page[string], error) {
		calls++
		return Page[string]{Items: []string{"a" + cursor, "target"}, Next: "next" + cursor}, nil
	}, 10, func(s string) bool { return s == "target" })
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "target", found)
	assert.Equal(t, 1, calls)
}

func TestGrantPlan(t *testing.T) {
	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error {
		return &StatusError{Method: http.MethodPut, Path: "/perm", StatusCode: http.StatusInternalServerError}
	}

	t.Run("applies every step in order", func(t *testing.T) {
		res := NewGrantPlan(testProvider).Add("group:a", ok).Add("repo:b", ok).Execute(context.Background())
		assert.Nil(t, res.Err)
		assert.Equal(t, []string{"group:a", "repo:b"}, res.Applied)
	})

	t.Run("later failure is partial and keeps applied steps", func(t *testing.T) {
		var ran []string
		step := func(name string, fn func(context.Context) error) func(context.Context) error {
			return func(ctx context.Context) error {
				ran = append(ran, name)
				return fn(ctx)
			}
		}
		res := NewGrantPlan(testProvider).
			Add("group:a", step("group:a", ok)).
			Add("repo:b", step("repo:b", fail)).
			Add("repo:c", step("repo:c", ok)).
			Execute(context.Background())

		require.NotNil(t, res.Err)
		assert.Equal(t, CategoryPartial, res.Err.Category)
		assert.True(t, res.Err.Retryable)
		assert.True(t, res.Partial())
		assert.Equal(t, []string{"group:a"}, res.Applied)
		assert.Equal(t, "repo:b", res.Failed)
		assert.Equal(t, []string{"group:a", "repo:b"}, ran, "execution stops at the failure")
	})

	t.Run("first step failure keeps its category", func(t *testing.T) {
		res := NewGrantPlan(testProvider).Add("repo:b", fail).Execute(context.Background())
		require.NotNil(t, res.Err)
		assert.Equal(t, CategoryTransient, res.Err.Category)
		assert.False(t, res.Partial())
	})
}

func TestRequire(t *testing.T) {
	err := Require(testProvider, Field{"workspace", ""}, Field{"apiToken", "x"}, Field{"username", " "})
	require.Error(t, err)
	assert.True(t, IsCategory(err, CategoryConfiguration))
	assert.Contains(t, err.Error(), "workspace, username")

	assert.NoError(t, Require(testProvider, Field{"workspace", "acme"}))
}

func TestProvisionResult_Outcome(t *testing.T) {
	res := ProvisionResult{Success: true, Err: NewError(testProvider, CategoryPartial, "half done")}
	outcome := res.Outcome()
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "half done")
	assert.Nil(t, outcome.Resources, "nothing applied leaves the record alone")

	res = ProvisionFailed(NewError(testProvider, CategoryPartial, "half done"),
		account.ProvisionedResources{Groups: []string{"eng"}, Partial: true})
	outcome = res.Outcome()
	require.NotNil(t, outcome.Resources)
	assert.Equal(t, []string{"eng"}, outcome.Resources.Groups)
}

type panicky struct{}

func (panicky) Provision(context.Context, ProvisionRequest) ProvisionResult { panic("boom") }
func (panicky) Deprovision(context.Context, DeprovisionRequest) DeprovisionResult {
	panic("boom")
}
func (panicky) TestConnection(context.Context) TestResult { panic("boom") }

func TestInstrumented_RecoversPanics(t *testing.T) {
	in := &integration.Integration{Provider: testProvider, Name: "bb"}
	c := Instrument(panicky{}, in, nil)

	res := c.Provision(context.Background(), ProvisionRequest{})
	require.NotNil(t, res.Err)
	assert.Equal(t, CategoryTransient, res.Err.Category)

	dres := c.Deprovision(context.Background(), DeprovisionRequest{})
	require.NotNil(t, dres.Err)

	tres := c.TestConnection(context.Background())
	assert.False(t, tres.Success)
}
