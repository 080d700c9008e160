package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlackoutTransactionID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "number", raw: `1001`, want: 1001},
		{name: "numeric string", raw: `"1001"`, want: 1001},
		{name: "padded string", raw: `" 42 "`, want: 42},
		{name: "non-numeric string", raw: `"abc"`, wantErr: true},
		{name: "fraction", raw: `10.5`, wantErr: true},
		{name: "null", raw: `null`, wantErr: true},
		{name: "missing", raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := BlackoutTransaction{ID: json.RawMessage(tt.raw)}
			got, err := tx.TransactionID()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransactionID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWebhookDecoding(t *testing.T) {
	body := `{"type":"transaction","url":"https://x","objectId":"1001",
		"data":{"id":1001,"status":"paid","paidAt":"2024-01-01T00:00:00Z","amount":5000,
		"customer":{"name":"Ana","email":"ana@example.com","document":{"type":"cpf","number":"123"}},
		"pix":{"qrcode":"000201","end2EndId":null}}}`

	var hook BlackoutWebhook
	require.NoError(t, json.Unmarshal([]byte(body), &hook))

	id, err := hook.Data.TransactionID()
	require.NoError(t, err)
	assert.Equal(t, int64(1001), id)
	assert.Equal(t, "paid", hook.Data.Status)
	require.NotNil(t, hook.Data.PaidAt)
	assert.Equal(t, "2024-01-01T00:00:00Z", *hook.Data.PaidAt)
	assert.Equal(t, "000201", hook.Data.Pix.QRCode)
}

func TestTrackingParametersNormalized(t *testing.T) {
	empty := ""
	source := "google"

	var missing *TrackingParameters
	assert.Equal(t, TrackingParameters{}, missing.Normalized())

	got := (&TrackingParameters{Src: &empty, UTMSource: &source}).Normalized()
	assert.Nil(t, got.Src)
	require.NotNil(t, got.UTMSource)
	assert.Equal(t, "google", *got.UTMSource)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"src":null,"sck":null,"utm_source":"google","utm_campaign":null,
		"utm_medium":null,"utm_content":null,"utm_term":null}`, string(out))
}

func TestStatusUpdateApply(t *testing.T) {
	approved := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	p := &Payment{PaymentStatus: PaymentStatusWaitingPayment}
	StatusUpdate{Status: "paid", SetApprovedDate: true, ApprovedDate: &approved}.Apply(p, now)

	assert.Equal(t, PaymentStatus("paid"), p.PaymentStatus)
	assert.Equal(t, &approved, p.ApprovedDate)
	assert.Nil(t, p.RefundedAt)
	assert.Equal(t, now, p.UpdatedAt)

	StatusUpdate{Status: "refused"}.Apply(p, now)
	assert.Equal(t, &approved, p.ApprovedDate, "unset flags leave fields untouched")
}
