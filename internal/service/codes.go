package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	bookingSuffixLen = 5
	base36           = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// lastMillis backs the monotonic component of booking codes.
var lastMillis atomic.Int64

// monotonicMillis returns the wall clock in milliseconds, bumped past the
// previous value when the clock stalls or steps back.
func monotonicMillis(now time.Time) int64 {
	ms := now.UnixMilli()
	for {
		prev := lastMillis.Load()
		next := ms
		if next <= prev {
			next = prev + 1
		}
		if lastMillis.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// NewBookingCode renders base36(monotonic millis) followed by five random
// base36 characters, upper-cased.  Codes are display tokens; uniqueness is
// enforced by the store at commit.
func NewBookingCode() (string, error) {
	suffix, err := randomString(base36, bookingSuffixLen)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strconv.FormatInt(monotonicMillis(time.Now()), 36) + suffix), nil
}

// RandomDigits returns width decimal digits, zero padded.  width must
// stay below 19.
func RandomDigits(width int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(width)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", width, n.Int64()), nil
}

func randomString(alphabet string, n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}
