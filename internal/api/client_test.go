package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/parishdesk/console/internal/credential"
	"github.com/parishdesk/console/internal/errors"
	"github.com/parishdesk/console/internal/scope"
)

func newTestClient(t *testing.T, upstream *httptest.Server, creds credential.Store, register *scope.Register, onAuthFailure func()) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:       upstream.URL,
		Credentials:   creds,
		Scope:         register,
		OnAuthFailure: onAuthFailure,
	})
}

func TestClient_BranchHeaderTracksRegister(t *testing.T) {
	var captured []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = append(captured, r.Header.Get(BranchHeader))
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	register := scope.NewRegister()
	client := newTestClient(t, upstream, credential.NewMemStore(), register, nil)

	// Three requests interleaved with two switches: each request must
	// carry the scope active at dispatch time.
	do := func() {
		resp, err := client.Get(context.Background(), "/members")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		resp.Body.Close()
	}

	do()
	register.Set(7)
	do()
	register.Set(2)
	do()

	want := []string{"0", "7", "2"}
	if len(captured) != len(want) {
		t.Fatalf("captured %d requests, want %d", len(captured), len(want))
	}
	for i := range want {
		if captured[i] != want[i] {
			t.Errorf("request %d: %s = %q, want %q", i, BranchHeader, captured[i], want[i])
		}
	}
}

func TestClient_BranchHeaderFixedAtSendTime(t *testing.T) {
	// A request already dispatched keeps the old scope even if a switch
	// happens before its response arrives; the subsequent reload discards
	// its result anyway.
	release := make(chan struct{})
	entered := make(chan struct{})
	var captured string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Get(BranchHeader)
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	register := scope.NewRegister()
	register.Set(3)
	client := newTestClient(t, upstream, credential.NewMemStore(), register, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := client.Get(context.Background(), "/events")
		if err != nil {
			t.Errorf("Get() error = %v", err)
			return
		}
		resp.Body.Close()
	}()

	// Switch while the first request is held open by the server.
	<-entered
	register.Set(9)
	close(release)
	<-done

	if captured != "3" {
		t.Errorf("in-flight request %s = %q, want %q", BranchHeader, captured, "3")
	}
}

func TestClient_AuthorizationHeaderLifecycle(t *testing.T) {
	var captured []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = append(captured, r.Header.Get(AuthorizationHeader))
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	creds := credential.NewMemStore()
	client := newTestClient(t, upstream, creds, scope.NewRegister(), nil)

	do := func() {
		resp, err := client.Get(context.Background(), "/members")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		resp.Body.Close()
	}

	do() // no credential
	_ = creds.Save("tok-123")
	do() // credential present
	_ = creds.Clear()
	do() // credential cleared

	want := []string{"", "Bearer tok-123", ""}
	for i := range want {
		if captured[i] != want[i] {
			t.Errorf("request %d: Authorization = %q, want %q", i, captured[i], want[i])
		}
	}
}

func TestClient_UnauthenticatedRequestStillGoesOut(t *testing.T) {
	// With an empty store the request is sent anyway; the server's 401
	// funnels into the standard teardown path.
	teardowns := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(AuthorizationHeader) != "" {
			t.Error("unauthenticated request should carry no Authorization header")
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	client := newTestClient(t, upstream, credential.NewMemStore(), scope.NewRegister(), func() { teardowns++ })

	resp, err := client.Get(context.Background(), "/members")
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Fatal("Get() should return the authorization failure")
	}
	if teardowns != 1 {
		t.Errorf("teardowns = %d, want 1", teardowns)
	}
}

func TestClient_AuthFailureIsHandledAndReraised(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	var mu sync.Mutex
	calls := 0
	client := newTestClient(t, upstream, credential.NewMemStore(), scope.NewRegister(), func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	// Concurrent fan-out: each 401 independently invokes the handler;
	// idempotency is the session controller's job, not the pipeline's.
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(context.Background(), "/members")
			if resp != nil {
				resp.Body.Close()
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.IsUnauthorized(err) {
			t.Errorf("request %d: error = %v, want unauthorized", i, err)
		}
	}
	if calls != 3 {
		t.Errorf("auth failure handler calls = %d, want 3", calls)
	}
}

func TestClient_HookOrder(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	client := newTestClient(t, upstream, credential.NewMemStore(), scope.NewRegister(), nil)

	var order []string
	client.OnRequest(func(*http.Request) { order = append(order, "req-a") })
	client.OnRequest(func(*http.Request) { order = append(order, "req-b") })
	client.OnResponse(func(*http.Response) { order = append(order, "resp-a") })

	resp, err := client.Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	want := []string{"req-a", "req-b", "resp-a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestDecodeResponse_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"nested envelope", http.StatusBadRequest, `{"error":{"message":"name is required"}}`, "name is required"},
		{"flat message", http.StatusConflict, `{"message":"duplicate member"}`, "duplicate member"},
		{"plain text", http.StatusBadGateway, "upstream exploded", "upstream exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer upstream.Close()

			resp, err := http.Get(upstream.URL)
			if err != nil {
				t.Fatal(err)
			}

			err = DecodeResponse(resp, nil)
			serviceErr := errors.GetServiceError(err)
			if serviceErr == nil {
				t.Fatalf("DecodeResponse() error = %v, want ServiceError", err)
			}
			if serviceErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", serviceErr.Message, tt.wantMsg)
			}
			if serviceErr.HTTPStatus != tt.status {
				t.Errorf("status = %d, want %d", serviceErr.HTTPStatus, tt.status)
			}
		})
	}
}

func TestDecodeResponse_Success(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":5,"name":"North Campus"}`))
	}))
	defer upstream.Close()

	resp, err := http.Get(upstream.URL)
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := DecodeResponse(resp, &out); err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if out.ID != 5 || out.Name != "North Campus" {
		t.Errorf("decoded = %+v", out)
	}
}
