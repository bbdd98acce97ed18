package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateOutTradeNo produces a merchant-side order number: date, millis
// and a 4-digit cryptographic random suffix. Collisions within the same
// millisecond are what the suffix is for.
func GenerateOutTradeNo() string {
	now := time.Now().UTC()

	datePart := now.Format("20060102-150405")
	millis := now.Nanosecond() / int(time.Millisecond)

	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// fallback: time-based entropy
		n = big.NewInt(now.UnixNano() % 10000)
	}

	return fmt.Sprintf(
		"PAY-%s-%03d-%04d",
		datePart,
		millis,
		n.Int64(),
	)
}
