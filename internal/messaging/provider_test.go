package messaging

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendProvider_Send(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"em_123"}`))
	}))
	defer srv.Close()

	p := NewResendProvider("re_test", "Shop <shop@example.com>")
	p.Endpoint = srv.URL

	id, err := p.Send(t.Context(), Message{Channel: ChannelEmail, Recipients: []string{"a@example.com", "b@example.com"}, Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "em_123", id)
	assert.Equal(t, resendRequest{From: "Shop <shop@example.com>", To: []string{"a@example.com", "b@example.com"}, Subject: "Hi", Text: "Hello"}, got)
}

func TestResendProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	p := NewResendProvider("re_test", "bad")
	p.Endpoint = srv.URL

	_, err := p.Send(t.Context(), Message{Channel: ChannelEmail, Recipients: []string{"a@example.com"}, Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "invalid from")
}

func TestSMSProvider_SendsOnePerRecipient(t *testing.T) {
	var to []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Accounts/AC1/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC1", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "+15550000000", r.PostForm.Get("From"))
		assert.Equal(t, "Your booking is confirmed", r.PostForm.Get("Body"))
		to = append(to, r.PostForm.Get("To"))
		_, _ = w.Write([]byte(`{"sid":"SM` + r.PostForm.Get("To")[1:] + `"}`))
	}))
	defer srv.Close()

	p := NewSMSProvider(srv.URL+"/", "AC1", "secret", "+15550000000")
	id, err := p.Send(t.Context(), Message{Channel: ChannelSMS, Recipients: []string{"+66811111111", "+66822222222"}, Body: "Your booking is confirmed"})
	require.NoError(t, err)
	assert.Equal(t, "SM66811111111,SM66822222222", id)
	assert.Equal(t, []string{"+66811111111", "+66822222222"}, to)
}

func TestSMSProvider_StopsAtFirstFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, `{"message":"unreachable"}`, http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	p := NewSMSProvider(srv.URL, "AC1", "secret", "+15550000000")
	id, err := p.Send(t.Context(), Message{Channel: ChannelSMS, Recipients: []string{"+1", "+2", "+3"}, Body: "x"})
	require.Error(t, err)
	assert.Equal(t, "SM1", id)
	assert.Equal(t, 2, calls)
}

func TestLogProvider(t *testing.T) {
	id, err := LogProvider{}.Send(t.Context(), Message{Channel: ChannelEmail, Recipients: []string{"a@example.com"}, Body: "x"})
	require.NoError(t, err)
	assert.Regexp(t, `^log_`, id)
}
