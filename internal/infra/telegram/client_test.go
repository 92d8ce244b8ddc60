package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"notigram/internal/common"
	"notigram/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:SECRET"

func testRequest(text string) notification.PostRequest {
	return notification.PostRequest{
		Token:  testToken,
		ChatID: "-1001",
		Text:   text,
		Timeouts: notification.Timeouts{
			Connect:           time.Second,
			ConnectionRequest: time.Second,
			Socket:            time.Second,
		},
	}
}

func TestNewClient(t *testing.T) {
	assert.Equal(t, "https://api.telegram.org/botT/sendMessage", NewClient("").endpoint("T"))
	assert.Equal(t, "http://local:8081/botT/sendMessage", NewClient("http://local:8081/").endpoint("T"))
}

func TestClient_PostFormFields(t *testing.T) {
	tests := []struct {
		name      string
		parseMode string
	}{
		{"without parse mode", ""},
		{"with parse mode", "MarkdownV2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got url.Values
			var path, contentType string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				contentType = r.Header.Get("Content-Type")
				require.NoError(t, r.ParseForm())
				got = r.PostForm
				_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
			}))
			defer srv.Close()

			req := testRequest("disk full on db-1")
			req.ParseMode = tt.parseMode

			err := NewClient(srv.URL).Post(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, "/bot"+testToken+"/sendMessage", path)
			assert.Equal(t, "application/x-www-form-urlencoded", contentType)
			assert.Equal(t, "-1001", got.Get("chat_id"))
			assert.Equal(t, "disk full on db-1", got.Get("text"))
			if tt.parseMode == "" {
				assert.NotContains(t, got, "parse_mode")
			} else {
				assert.Equal(t, tt.parseMode, got.Get("parse_mode"))
			}
		})
	}
}

func TestClient_PostNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Post(context.Background(), testRequest("x"))

	var terr *common.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusBadRequest, terr.StatusCode)
	assert.Equal(t, "Bad Request: chat not found", terr.Description)
}

func TestClient_PostNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Post(context.Background(), testRequest("x"))

	var terr *common.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusServiceUnavailable, terr.StatusCode)
	assert.Empty(t, terr.Description)
}

func TestClient_PostNetworkErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	err := NewClient(addr).Post(context.Background(), testRequest("x"))

	var terr *common.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Zero(t, terr.StatusCode)
	assert.Error(t, terr.Err)
	assert.NotContains(t, err.Error(), "SECRET")
}

func TestClient_PostSocketTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	req := testRequest("x")
	req.Timeouts.Socket = 50 * time.Millisecond

	start := time.Now()
	err := NewClient(srv.URL).Post(context.Background(), req)

	var terr *common.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRequestDeadline(t *testing.T) {
	assert.Equal(t, 3*time.Second, requestDeadline(testRequest("").Timeouts))
	assert.Zero(t, requestDeadline(notification.Timeouts{Connect: time.Second, Socket: time.Second}))
}
