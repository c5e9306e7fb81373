package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudpos/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOnePay(t *testing.T, baseURL string) *OnePayAdapter {
	t.Helper()
	a, err := NewOnePayAdapter(&OnePayConfig{AppID: "APP01", AppToken: "tok", HashSalt: "salt", BaseURL: baseURL})
	require.NoError(t, err)
	return a
}

func TestOnePayConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&OnePayConfig{}).Validate(), ErrOnePayMissingAppID)
	assert.ErrorIs(t, (&OnePayConfig{AppID: "a"}).Validate(), ErrOnePayMissingAppToken)
	assert.ErrorIs(t, (&OnePayConfig{AppID: "a", AppToken: "t"}).Validate(), ErrOnePayMissingHashSalt)
	assert.Equal(t, onePayDefaultBaseURL, (&OnePayConfig{}).apiBase())
	assert.Equal(t, "http://x", (&OnePayConfig{BaseURL: "http://x/"}).apiBase())
}

func TestOnePayAdapter_CreatePayment(t *testing.T) {
	var got onePayCreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, onePayCheckoutPath, r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":200,"message":"ok","data":{"ipg_transaction_id":"OP-9","gateway":{"redirect_url":"https://pay.onepay.lk/OP-9"}}}`))
	}))
	defer srv.Close()

	a := newTestOnePay(t, srv.URL)
	resp, err := a.CreatePayment(context.Background(), validPaymentRequest())
	require.NoError(t, err)

	assert.Equal(t, finance.CheckoutMethodRedirect, resp.Method)
	assert.Equal(t, "https://pay.onepay.lk/OP-9", resp.CheckoutURL)
	assert.Equal(t, "OP-9", resp.GatewayOrderID)

	assert.Equal(t, "APP01", got.AppID)
	assert.Equal(t, "1000.00", got.Amount.String())
	assert.Equal(t, "LKR", got.Currency)
	assert.Equal(t, "INV-000042-1A2B3C4D", got.Reference)
	assert.Equal(t, a.requestHash("LKR", "1000.00"), got.Hash)
	assert.Len(t, got.Hash, 64)
}

func TestOnePayAdapter_CreatePayment_Errors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"message":"invalid app token"}`))
		}))
		defer srv.Close()

		_, err := newTestOnePay(t, srv.URL).CreatePayment(context.Background(), validPaymentRequest())
		assert.ErrorIs(t, err, finance.ErrGatewayRequestFailed)
		assert.ErrorContains(t, err, "invalid app token")
	})

	t.Run("missing redirect", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":200,"message":"queued","data":{}}`))
		}))
		defer srv.Close()

		_, err := newTestOnePay(t, srv.URL).CreatePayment(context.Background(), validPaymentRequest())
		assert.ErrorIs(t, err, finance.ErrGatewayInvalidResponse)
	})
}

func TestOnePayAdapter_VerifyCallback(t *testing.T) {
	a := newTestOnePay(t, "")
	body := []byte(`{"transaction_id":"OP-9","reference":"INV-1-AAAA","status":1,"status_message":"SUCCESS","amount":"1000.00","currency":"lkr"}`)

	cb, err := a.VerifyCallback(context.Background(), body, a.sign(body))
	require.NoError(t, err)
	assert.Equal(t, finance.GatewayPaymentStatusPaid, cb.Status)
	assert.Equal(t, "INV-1-AAAA", cb.OrderNumber)
	assert.Equal(t, "OP-9", cb.GatewayTransactionID)
	assert.True(t, cb.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "LKR", cb.Currency)

	failed := []byte(`{"transaction_id":"OP-10","reference":"INV-2-BBBB","status":0,"amount":"10.00","currency":"LKR"}`)
	cb, err = a.VerifyCallback(context.Background(), failed, a.sign(failed))
	require.NoError(t, err)
	assert.Equal(t, finance.GatewayPaymentStatusFailed, cb.Status)
}

func TestOnePayAdapter_VerifyCallback_Rejects(t *testing.T) {
	a := newTestOnePay(t, "")
	body := []byte(`{"transaction_id":"OP-9","reference":"INV-1-AAAA","status":1,"amount":"1000.00","currency":"LKR"}`)

	_, err := a.VerifyCallback(context.Background(), body, "")
	assert.ErrorIs(t, err, finance.ErrGatewayInvalidCallback)

	_, err = a.VerifyCallback(context.Background(), body, "deadbeef")
	assert.ErrorIs(t, err, finance.ErrGatewayInvalidCallback)

	tampered := []byte(`{"transaction_id":"OP-9","reference":"INV-1-AAAA","status":1,"amount":"1.00","currency":"LKR"}`)
	_, err = a.VerifyCallback(context.Background(), tampered, a.sign(body))
	assert.ErrorIs(t, err, finance.ErrGatewayInvalidCallback)

	noRef := []byte(`{"transaction_id":"OP-9","status":1,"amount":"1.00"}`)
	_, err = a.VerifyCallback(context.Background(), noRef, a.sign(noRef))
	assert.ErrorIs(t, err, finance.ErrGatewayInvalidResponse)
}

func TestOnePayAdapter_GenerateCallbackResponse(t *testing.T) {
	a := newTestOnePay(t, "")
	assert.JSONEq(t, `{"status":1}`, string(a.GenerateCallbackResponse(true, "")))
	assert.JSONEq(t, `{"status":0,"message":"bad"}`, string(a.GenerateCallbackResponse(false, "bad")))
}
