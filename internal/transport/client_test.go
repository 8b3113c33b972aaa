package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (w *widget) Validate() error {
	if w.ID == 0 {
		return errors.New("widget: id is required")
	}
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/api/widgets/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch chi.URLParam(r, "id") {
		case "1":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": r.URL.Query().Get("name")})
		case "missing-id":
			_ = json.NewEncoder(w).Encode(map[string]any{"name": "nameless"})
		case "garbage":
			_, _ = w.Write([]byte("<html>"))
		case "empty":
		}
	})
	r.Get("/api/errors/{kind}", func(w http.ResponseWriter, r *http.Request) {
		switch chi.URLParam(r, "kind") {
		case "detail":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
		case "detail-list":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"loc":["body","email"],"msg":"field required"}]}`))
		case "raw":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"duplicate"}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	r.Post("/api/widgets", func(w http.ResponseWriter, r *http.Request) {
		var body widget
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		w.Header().Set("X-Echo-Key", r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusCreated)
		body.ID = 42
		_ = json.NewEncoder(w).Encode(body)
	})
	r.Delete("/api/widgets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	client, err := New(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return client
}

func TestNewValidatesBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)

	_, err = New("/relative/api")
	require.Error(t, err)

	client, err := New("http://localhost:8000/api")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api/products?min_stock=1", client.resolve("/products", url.Values{"min_stock": {"1"}}))
}

func TestGetDecodesAndValidates(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := newTestClient(t, srv)

	var got widget
	require.NoError(t, client.Get(context.Background(), "/widgets/1", url.Values{"name": {"gear"}}, &got))
	require.Equal(t, widget{ID: 1, Name: "gear"}, got)

	cases := []struct {
		name string
		path string
	}{
		{name: "missing required field", path: "/widgets/missing-id"},
		{name: "not json", path: "/widgets/garbage"},
		{name: "empty body", path: "/widgets/empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var w widget
			err := client.Get(context.Background(), tc.path, nil, &w)
			require.Error(t, err)
			require.Equal(t, KindDecode, KindOf(err))
		})
	}
}

func TestServerErrorMessages(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := newTestClient(t, srv)

	cases := []struct {
		path    string
		status  int
		message string
	}{
		{path: "/errors/detail", status: http.StatusBadRequest, message: "Invalid credentials"},
		{path: "/errors/detail-list", status: http.StatusUnprocessableEntity, message: `[{"loc":["body","email"],"msg":"field required"}]`},
		{path: "/errors/raw", status: http.StatusConflict, message: `{"error":"duplicate"}`},
		{path: "/errors/bare", status: http.StatusServiceUnavailable, message: "Service Unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			err := client.Get(context.Background(), tc.path, nil, nil)
			require.Error(t, err)

			var tErr *Error
			require.True(t, errors.As(err, &tErr))
			require.Equal(t, KindServer, tErr.Kind)
			require.Equal(t, tc.status, tErr.Status)
			require.Equal(t, tc.message, MessageOf(err))
		})
	}
}

func TestConnectivityError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := New(base + "/api")
	require.NoError(t, err)

	err = client.Get(context.Background(), "/products", nil, nil)
	require.Error(t, err)
	require.Equal(t, KindConnectivity, KindOf(err))
	require.Equal(t, connectivityMessage, MessageOf(err))
}

func TestFetchDegradesToNoData(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	notifier := &recordingNotifier{}
	client := newTestClient(t, srv, WithNotifier(notifier))

	var w widget
	require.True(t, client.Fetch(context.Background(), "/widgets/1", nil, &w))
	require.False(t, client.Fetch(context.Background(), "/errors/detail", nil, &w))
	require.False(t, client.Fetch(context.Background(), "/widgets/garbage", nil, &w))
	require.Empty(t, notifier.messages)
}

func TestMutateNotifiesBeforeReturning(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	notifier := &recordingNotifier{}
	client := newTestClient(t, srv, WithNotifier(notifier))

	var created widget
	require.NoError(t, client.Mutate(context.Background(), http.MethodPost, "/widgets", widget{Name: "bolt"}, &created))
	require.Equal(t, int64(42), created.ID)
	require.NoError(t, client.Mutate(context.Background(), http.MethodDelete, "/widgets/42", nil, nil))
	require.Empty(t, notifier.messages)

	err := client.Mutate(context.Background(), http.MethodPost, "/errors/detail", map[string]string{}, nil)
	require.Error(t, err)
	require.Equal(t, []string{"Invalid credentials"}, notifier.messages)
}

func TestDoForwardsHeaders(t *testing.T) {
	t.Parallel()

	var seen string
	r := chi.NewRouter()
	r.Post("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Idempotency-Key")
		_, _ = w.Write([]byte(`{"id":7}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client := newTestClient(t, srv)
	var out widget
	err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/orders",
		Body:   map[string]int{"user_id": 1},
		Header: http.Header{"Idempotency-Key": {"01HZX"}},
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "01HZX", seen)
	require.Equal(t, int64(7), out.ID)
}

func TestInvalidWrapsCause(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("cart is empty")
	err := Invalid("Your cart is empty", sentinel)

	require.True(t, errors.Is(err, sentinel))
	require.Equal(t, KindValidation, KindOf(err))
	require.Equal(t, "Your cart is empty", MessageOf(err))
	require.Equal(t, Kind(""), KindOf(sentinel))
	require.Equal(t, "cart is empty", MessageOf(sentinel))
}
