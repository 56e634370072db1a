package kassa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"moa_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   map[string]interface{}
}

func newTestClient(t *testing.T, response string) (*Client, *[]recordedRequest, *httptest.Server) {
	t.Helper()

	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
		}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &rec.body))
		}
		requests = append(requests, rec)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Kassa.URL = srv.URL
	cfg.Kassa.Token = "kassa-token"
	cfg.Kassa.ConfirmCode = "2222"
	cfg.Kassa.OrganizationName = "MileOnAir"
	cfg.Kassa.PointName = "Шереметьево D1"

	return NewClient(cfg), &requests, srv
}

func TestInfo_ResolvesTransactionUUID(t *testing.T) {
	client, requests, _ := newTestClient(t,
		`{"responseCode":0,"data":{"transaction_uuid":"tx-1"}}`)

	uuid, err := client.Info(context.Background(), "personal-qr")
	require.NoError(t, err)

	assert.Equal(t, "tx-1", uuid)
	req := (*requests)[0]
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/qr/info", req.path)
	assert.Equal(t, "qr=personal-qr", req.query)
}

func TestReserve_SendsOrganizationRequisites(t *testing.T) {
	client, requests, _ := newTestClient(t, `{"responseCode":0}`)

	err := client.Reserve(context.Background(), "tx-1", 3)
	require.NoError(t, err)

	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/rcc", req.path)
	assert.Equal(t, "tx-1", req.body["transaction_uuid"])
	assert.Equal(t, float64(3), req.body["mile_count"])
	assert.Equal(t, "MileOnAir", req.body["organization_name"])
	assert.Equal(t, "Шереметьево D1", req.body["point_name"])
}

func TestFreeze_SendsConfirmationCode(t *testing.T) {
	client, requests, _ := newTestClient(t, `{"responseCode":0}`)

	require.NoError(t, client.Freeze(context.Background(), "tx-1"))

	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/miles/freeze", req.path)
	assert.Equal(t, "tx-1", req.body["transaction_uuid"])
	assert.Equal(t, "2222", req.body["confirmation_code"])
}

func TestUnfreeze_KeyedByTransaction(t *testing.T) {
	client, requests, _ := newTestClient(t, `{"responseCode":0}`)

	require.NoError(t, client.Unfreeze(context.Background(), "tx-1"))

	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/miles/unfreeze", req.path)
	assert.Equal(t, map[string]interface{}{"transaction_uuid": "tx-1"}, req.body)
}

func TestRedeem_CarriesReceiptAndCode(t *testing.T) {
	client, requests, _ := newTestClient(t,
		`{"responseCode":0,"data":{"bonus_mile_count":10}}`)

	receipt := Receipt{
		FnNumber:         "9999",
		OrganizationName: "MileOnAir",
		Amount:           69700,
		Products: []ReceiptProduct{
			{ID: 7, Name: "Абонемент", Quantity: 3, Price: 23300, Amount: 69900},
		},
	}
	bonus, err := client.Redeem(context.Background(), "tx-1", receipt)
	require.NoError(t, err)
	assert.Equal(t, int64(10), bonus)

	req := (*requests)[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/miles/redeem", req.path)
	assert.Equal(t, "tx-1", req.body["transaction_uuid"])
	assert.Equal(t, "2222", req.body["confirmation_code"])

	wire, ok := req.body["receipt"].(map[string]interface{})
	require.True(t, ok, "чек уходит внутри операции списания")
	assert.Equal(t, "9999", wire["fn_number"])
	assert.Equal(t, float64(69700), wire["amount"])
	products, ok := wire["products"].([]interface{})
	require.True(t, ok)
	require.Len(t, products, 1)
	assert.Equal(t, "Абонемент", products[0].(map[string]interface{})["name"])
}

func TestCollect_PostsReceiptWithoutCode(t *testing.T) {
	client, requests, _ := newTestClient(t,
		`{"responseCode":0,"data":{"bonus_mile_count":5}}`)

	bonus, err := client.Collect(context.Background(), "tx-1", Receipt{Amount: 20000})
	require.NoError(t, err)
	assert.Equal(t, int64(5), bonus)

	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/miles/collect", req.path)
	assert.Equal(t, "tx-1", req.body["transaction_uuid"])
	assert.NotContains(t, req.body, "confirmation_code")
	require.Contains(t, req.body, "receipt")
}

func TestBusinessRefusalSurfacesAsError(t *testing.T) {
	client, _, _ := newTestClient(t,
		`{"responseCode":12,"responseMessage":"insufficient miles"}`)

	err := client.Reserve(context.Background(), "tx-1", 1000000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient miles")
}
