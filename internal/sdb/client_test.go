package sdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/the-livingstone/sdb-options/internal/model"
)

func nodeFixture() *model.TreeNode {
	return &model.TreeNode{
		ID:         leafID,
		Revision:   "rev-0",
		Name:       "F2016",
		Path:       []string{rootID, branchID, folderID, leafID},
		IsAbstract: false,
		Ticker:     "ZW",
	}
}

const (
	rootID   = "11111111-1111-1111-1111-111111111111"
	branchID = "22222222-2222-2222-2222-222222222222"
	folderID = "33333333-3333-3333-3333-333333333333"
	leafID   = "44444444-4444-4444-4444-444444444444"
)

func TestEnvironmentBaseURL(t *testing.T) {
	tests := []struct {
		env  Environment
		want string
	}{
		{Prod, "http://symboldb.prod.zorg.sh/symboldb-editor/api/v1.0"},
		{Stage, "http://symboldb.stage.zorg.sh/symboldb-editor/api/v1.0"},
		// demo instruments live in the prod catalog
		{Demo, "http://symboldb.prod.zorg.sh/symboldb-editor/api/v1.0"},
	}
	for _, tc := range tests {
		if got := tc.env.BaseURL(); got != tc.want {
			t.Errorf("BaseURL(%s) = %q, want %q", tc.env, got, tc.want)
		}
	}
}

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient(Prod, "session-1")

		if c.baseURL != Prod.BaseURL() {
			t.Errorf("baseURL = %q, want %q", c.baseURL, Prod.BaseURL())
		}
		if c.sessionID != "session-1" {
			t.Errorf("sessionID = %q, want %q", c.sessionID, "session-1")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		c := NewClient(Stage, "",
			WithBaseURL("http://localhost:8080"),
			WithTimeout(5*time.Second),
			WithRetries(5, 2*time.Second),
		)
		if c.baseURL != "http://localhost:8080" {
			t.Errorf("baseURL = %q, want override", c.baseURL)
		}
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
		}
		if c.maxRetries != 5 || c.retryBackoff != 2*time.Second {
			t.Errorf("retries = %d/%v, want 5/2s", c.maxRetries, c.retryBackoff)
		}
	})
}

func TestAPIError(t *testing.T) {
	t.Run("Error method", func(t *testing.T) {
		err := &APIError{StatusCode: 404, Message: "Not Found"}
		want := "symboldb api error 404: Not Found"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
		tests := []struct {
			code int
			want bool
		}{
			{500, true},
			{502, true},
			{503, true},
			{429, true},
			{400, false},
			{401, false},
			{404, false},
		}
		for _, tc := range tests {
			err := &APIError{StatusCode: tc.code}
			if got := err.IsRetryable(); got != tc.want {
				t.Errorf("IsRetryable(%d) = %v, want %v", tc.code, got, tc.want)
			}
		}
	})
}

func TestIsUUID(t *testing.T) {
	if !IsUUID(rootID) {
		t.Errorf("IsUUID(%q) = false, want true", rootID)
	}
	for _, s := range []string{"", "Root", "not-a-uuid"} {
		if IsUUID(s) {
			t.Errorf("IsUUID(%q) = true, want false", s)
		}
	}
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Prod, "test-session",
		WithBaseURL(srv.URL),
		WithRetries(2, time.Millisecond),
	)
}

func TestGet(t *testing.T) {
	t.Run("existing node", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-Auth-SessionId"); got != "test-session" {
				t.Errorf("session header = %q, want test-session", got)
			}
			if r.URL.Path != "/instruments/"+folderID {
				t.Errorf("path = %q", r.URL.Path)
			}
			io.WriteString(w, `{"_id": "`+folderID+`", "name": "ZW", "isAbstract": true,
				"path": ["`+rootID+`", "`+branchID+`", "`+folderID+`"], "ticker": "ZW"}`)
		})

		node, err := c.Get(context.Background(), folderID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if node == nil || node.ID != folderID || node.Ticker != "ZW" {
			t.Errorf("node = %+v", node)
		}
	})

	t.Run("missing node", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		node, err := c.Get(context.Background(), leafID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if node != nil {
			t.Errorf("node = %+v, want nil", node)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected for a malformed id")
		})
		if _, err := c.Get(context.Background(), "Root"); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestGetHeirs(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("parentId") {
		case branchID:
			io.WriteString(w, `[
				{"_id": "`+folderID+`", "name": "CME", "isAbstract": true,
				 "path": ["`+rootID+`", "`+branchID+`", "`+folderID+`"]}
			]`)
		case folderID:
			io.WriteString(w, `[
				{"_id": "`+leafID+`", "name": "F2016", "isAbstract": false,
				 "path": ["`+rootID+`", "`+branchID+`", "`+folderID+`", "`+leafID+`"]}
			]`)
		default:
			io.WriteString(w, `[]`)
		}
	})

	t.Run("direct children", func(t *testing.T) {
		heirs, err := c.GetHeirs(context.Background(), branchID, false, false)
		if err != nil {
			t.Fatalf("GetHeirs: %v", err)
		}
		if len(heirs) != 1 || heirs[0].Name != "CME" {
			t.Errorf("heirs = %+v", heirs)
		}
	})

	t.Run("recursive descends into abstract folders", func(t *testing.T) {
		heirs, err := c.GetHeirs(context.Background(), branchID, true, true)
		if err != nil {
			t.Fatalf("GetHeirs: %v", err)
		}
		if len(heirs) != 2 {
			t.Fatalf("heirs = %d, want 2", len(heirs))
		}
		if heirs[1].Name != "F2016" {
			t.Errorf("deep heir = %+v", heirs[1])
		}
	})
}

func TestUUIDByPath(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			{"_id": "`+rootID+`", "name": "Root", "isAbstract": true, "path": ["`+rootID+`"]},
			{"_id": "`+branchID+`", "name": "OPTION", "isAbstract": true,
			 "path": ["`+rootID+`", "`+branchID+`"]},
			{"_id": "`+folderID+`", "name": "CME", "isAbstract": true,
			 "path": ["`+rootID+`", "`+branchID+`", "`+folderID+`"]}
		]`)
	})

	id, err := c.UUIDByPath(context.Background(), "Root", "OPTION", "CME")
	if err != nil {
		t.Fatalf("UUIDByPath: %v", err)
	}
	if id != folderID {
		t.Errorf("id = %q, want %q", id, folderID)
	}

	id, err = c.UUIDByPath(context.Background(), "Root", "FUTURE")
	if err != nil {
		t.Fatalf("UUIDByPath: %v", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty for a missing path", id)
	}
}

func TestRetries(t *testing.T) {
	t.Run("get retries 5xx", func(t *testing.T) {
		var calls atomic.Int32
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			io.WriteString(w, `[]`)
		})
		if _, err := c.GetExchanges(context.Background()); err != nil {
			t.Fatalf("GetExchanges: %v", err)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("calls = %d, want 3", got)
		}
	})

	t.Run("get does not retry 4xx", func(t *testing.T) {
		var calls atomic.Int32
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		})
		_, err := c.GetExchanges(context.Background())
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 400 {
			t.Fatalf("err = %v, want APIError 400", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1", got)
		}
	})

	t.Run("writes are never retried", func(t *testing.T) {
		var calls atomic.Int32
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		})
		node := nodeFixture()
		if _, err := c.Update(context.Background(), node); err == nil {
			t.Error("expected an error")
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1", got)
		}
	})
}

func TestCreateAndUpdate(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/instruments" {
				t.Errorf("%s %s", r.Method, r.URL.Path)
			}
			io.WriteString(w, `{"_id": "`+leafID+`", "_rev": "rev-1"}`)
		})
		res, err := c.Create(context.Background(), nodeFixture())
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if res.ID != leafID || res.Revision != "rev-1" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("update requires an id", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		node := nodeFixture()
		node.ID = ""
		if _, err := c.Update(context.Background(), node); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestBatch(t *testing.T) {
	t.Run("create strips service fields", func(t *testing.T) {
		var body []byte
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Content-Type"); got != "application/x-ld-json" {
				t.Errorf("content type = %q, want application/x-ld-json", got)
			}
			body, _ = io.ReadAll(r.Body)
			io.WriteString(w, `{"message": "ok"}`)
		})

		res, err := c.BatchCreate(context.Background(), []*model.TreeNode{nodeFixture()})
		if err != nil {
			t.Fatalf("BatchCreate: %v", err)
		}
		if res.Message != "ok" {
			t.Errorf("message = %q, want ok", res.Message)
		}

		var env struct {
			Data   json.RawMessage `json:"data"`
			Type   string          `json:"type"`
			Action string          `json:"action"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if env.Type != "instrument" || env.Action != "create" {
			t.Errorf("envelope = %s/%s", env.Type, env.Action)
		}
		if bytes.Contains(env.Data, []byte(`"_id"`)) {
			t.Errorf("create payload still carries _id: %s", env.Data)
		}
	})

	t.Run("empty batch posts nothing", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		if _, err := c.BatchUpdate(context.Background(), nil); err != nil {
			t.Errorf("BatchUpdate(nil): %v", err)
		}
	})

	t.Run("plain-text answer is kept as message", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "2 created")
		})
		res, err := c.BatchCreate(context.Background(), []*model.TreeNode{nodeFixture()})
		if err != nil {
			t.Fatalf("BatchCreate: %v", err)
		}
		if !strings.Contains(res.Message, "2 created") {
			t.Errorf("message = %q", res.Message)
		}
	})
}
