package walletid

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const prefix = "WALNG"

var sixDigitBound = big.NewInt(1_000_000)

// Generate returns a human readable wallet identifier: fixed prefix,
// the current month and day, and six random digits.
// Uniqueness is not guaranteed here, callers deal with collisions.
func Generate() string {
	mmdd := time.Now().Format("0102")

	n, err := rand.Int(rand.Reader, sixDigitBound)
	if err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("walletid: random source unavailable: %v", err))
	}

	return fmt.Sprintf("%s%s%06d", prefix, mmdd, n.Int64())
}
