package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignPaymentDeterministic(t *testing.T) {
	p := sampleParameters()

	first := SignPayment("secret", p)
	second := SignPayment("secret", p)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex-encoded SHA-256
}

func TestSignPaymentDependsOnFieldsAndSecret(t *testing.T) {
	p := sampleParameters()
	base := SignPayment("secret", p)

	assert.NotEqual(t, base, SignPayment("other-secret", p))

	changed := p
	changed.TxID = "different"
	assert.NotEqual(t, base, SignPayment("secret", changed))

	changed = p
	changed.Timestamp++
	assert.NotEqual(t, base, SignPayment("secret", changed))
}

func TestVerifySignature(t *testing.T) {
	p := sampleParameters()
	sig := SignPayment("secret", p)

	assert.True(t, VerifySignature("secret", sig, p))
	assert.False(t, VerifySignature("wrong", sig, p))
	assert.False(t, VerifySignature("secret", "deadbeef", p))
}
