package service

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

var bookingCodeRE = regexp.MustCompile(`^[0-9A-Z]+$`)

func TestNewBookingCodeFormat(t *testing.T) {
	seen := map[string]bool{}
	var lastPrefix int64
	for i := 0; i < 200; i++ {
		code, err := NewBookingCode()
		if err != nil {
			t.Fatalf("NewBookingCode: %v", err)
		}
		if !bookingCodeRE.MatchString(code) {
			t.Fatalf("code %q is not upper-case alphanumeric", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true

		prefix, err := strconv.ParseInt(strings.ToLower(code[:len(code)-bookingSuffixLen]), 36, 64)
		if err != nil {
			t.Fatalf("prefix of %q: %v", code, err)
		}
		if prefix <= lastPrefix {
			t.Fatalf("time component not increasing: %d after %d", prefix, lastPrefix)
		}
		lastPrefix = prefix
	}
}

func TestMonotonicMillisSurvivesClockStepBack(t *testing.T) {
	now := time.Now()
	a := monotonicMillis(now)
	b := monotonicMillis(now.Add(-time.Hour))
	if b <= a {
		t.Fatalf("clock went back: %d then %d", a, b)
	}
}

func TestRandomDigits(t *testing.T) {
	for _, width := range []int{1, 3, 4, 6} {
		for i := 0; i < 50; i++ {
			d, err := RandomDigits(width)
			if err != nil {
				t.Fatal(err)
			}
			if len(d) != width {
				t.Fatalf("RandomDigits(%d) = %q", width, d)
			}
			if _, err := strconv.Atoi(d); err != nil {
				t.Fatalf("RandomDigits(%d) = %q is not numeric", width, d)
			}
		}
	}
}
