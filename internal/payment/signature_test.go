package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature_Roundtrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	header := Sign(payload, "whsec_test", time.Now())
	assert.NoError(t, VerifySignature(payload, header, "whsec_test", DefaultTolerance))
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	header := Sign([]byte(`{"total":100}`), "whsec_test", time.Now())
	err := VerifySignature([]byte(`{"total":1}`), header, "whsec_test", DefaultTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	payload := []byte(`{}`)
	header := Sign(payload, "whsec_test", time.Now())
	err := VerifySignature(payload, header, "whsec_other", DefaultTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	payload := []byte(`{}`)
	header := Sign(payload, "whsec_test", time.Now().Add(-time.Hour))
	err := VerifySignature(payload, header, "whsec_test", DefaultTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// Zero tolerance disables the age check entirely.
	assert.NoError(t, VerifySignature(payload, header, "whsec_test", 0))
}

func TestVerifySignature_Malformed(t *testing.T) {
	payload := []byte(`{}`)
	for _, header := range []string{
		"",
		"garbage",
		"t=123",
		"v1=deadbeef",
		"t=notanumber,v1=deadbeef",
	} {
		err := VerifySignature(payload, header, "whsec_test", DefaultTolerance)
		assert.ErrorIs(t, err, ErrInvalidSignature, "header %q", header)
	}
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "metadata": {"orderId": "abc"}}}
	}`)
	ev, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "abc", ev.Data.Object.Metadata["orderId"])

	_, err = ParseEvent([]byte("not json"))
	assert.Error(t, err)
}
