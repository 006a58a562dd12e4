package models

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var deliveryCodePattern = regexp.MustCompile(`^D\d{6,}$`)

func TestNewDeliveryCode_MatchesInvariantPattern(t *testing.T) {
	for _, seq := range []int64{0, 1, 42, 999999, 1000000, 123456789} {
		code := NewDeliveryCode(seq)
		assert.Regexp(t, deliveryCodePattern, code)
	}
}

func TestNewDeliveryCode_ZeroPadsToSixDigits(t *testing.T) {
	assert.Equal(t, "D000042", NewDeliveryCode(42))
}

func TestNewDeliveryCode_DoesNotTruncateLargeSequences(t *testing.T) {
	assert.Equal(t, "D123456789", NewDeliveryCode(123456789))
}
