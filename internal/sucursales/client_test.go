package sucursales

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var centro = Form{
	Nombre:       "Centro",
	Provincia:    "Córdoba",
	Departamento: "Capital",
	Localidad:    "Córdoba",
	Direccion:    "Av. Colón 100",
}

func TestClientCreateSendsJSONAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, CreatePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "tok123", r.Header.Get("X-CSRFToken"))
		cookie, err := r.Cookie("csrftoken")
		require.NoError(t, err)
		assert.Equal(t, "tok123", cookie.Value)

		var got Form
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, centro, got)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"5b1c","nombre":"Centro"}`))
	}))
	defer srv.Close()

	body, err := NewClient(srv.URL, time.Second).Create(context.Background(), centro, "tok123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"5b1c","nombre":"Centro"}`, string(body))
}

func TestClientCreateWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values, present := r.Header["X-Csrftoken"]
		assert.True(t, present)
		assert.Equal(t, []string{""}, values)
		_, err := r.Cookie("csrftoken")
		assert.ErrorIs(t, err, http.ErrNoCookie)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Create(context.Background(), centro, "")
	require.NoError(t, err)
}

func TestClientCreateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"ya existe"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Create(context.Background(), centro, "tok")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.JSONEq(t, `{"detail":"ya existe"}`, string(apiErr.Body))
}

func TestClientCreateNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<h1>CSRF verification failed</h1>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Create(context.Background(), centro, "")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestClientCreateTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr, time.Second).Create(context.Background(), centro, "")
	require.Error(t, err)
}
