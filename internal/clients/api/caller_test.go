package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"moa_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New("kassa", srv.URL, "test-token", 5*time.Second), srv
}

func TestCall_DecodesEnvelopeData(t *testing.T) {
	var gotAuth, gotQuery string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("number")
		w.Write([]byte(`{"responseCode":0,"responseMessage":"OK","data":{"mileCount":42}}`))
	})
	defer srv.Close()

	query := url.Values{}
	query.Set("number", "100200300")

	var out struct {
		MileCount int64 `json:"mileCount"`
	}
	err := client.Call(context.Background(), http.MethodGet, "qr/info", query, nil, &out)

	require.NoError(t, err)
	assert.Equal(t, int64(42), out.MileCount)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "100200300", gotQuery)
}

func TestCall_BusinessErrorCarriesUpstreamCode(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseCode":21,"responseMessage":"card already bound"}`))
	})
	defer srv.Close()

	err := client.Call(context.Background(), http.MethodPost, "privileges/bindCard", nil, map[string]string{}, nil)
	require.Error(t, err)

	assert.Equal(t, 21, apperrors.UpstreamCodeOf(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUpstreamBusiness, appErr.Code)
	assert.Equal(t, "card already bound", appErr.Message, "сообщение берётся из конверта")
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPCode)
}

func TestCall_MalformedBodyIsTransportError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>502 Bad Gateway</html>`))
	})
	defer srv.Close()

	err := client.Call(context.Background(), http.MethodGet, "qr/info", nil, nil, nil)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUpstreamTransport, appErr.Code)
	assert.Equal(t, -1, apperrors.UpstreamCodeOf(err), "транспортный сбой не несёт кода конверта")
}

func TestCall_ConnectionRefusedIsTransportError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	err := client.Call(context.Background(), http.MethodGet, "qr/info", nil, nil, nil)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUpstreamTransport, appErr.Code)
}

func TestCall_PostSendsJSONBody(t *testing.T) {
	var gotContentType string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"responseCode":0,"data":{"uuid":"tx-1"}}`))
	})
	defer srv.Close()

	var out struct {
		UUID string `json:"uuid"`
	}
	err := client.Call(context.Background(), http.MethodPost, "miles/freeze",
		nil, map[string]interface{}{"number": "100200300", "mileCount": 3}, &out)

	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "tx-1", out.UUID)
}
