package parser

import (
	"math"
	"strconv"

	"github.com/ajitpratap0/featline/pkg/errors"
	stringpool "github.com/ajitpratap0/featline/pkg/strings"
)

// parseFloat scans the longest float prefix of b and returns its value and
// the number of bytes consumed. Leading spaces are consumed along with the
// number. Zero bytes consumed means no float was found.
func parseFloat(b []byte) (float32, int) {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	start := i
	if i < len(b) && (b[i] == '-' || b[i] == '+') {
		i++
	}

	digits := 0
	for i < len(b) && isDigit(b[i]) {
		i++
		digits++
	}
	if i < len(b) && b[i] == '.' {
		i++
		for i < len(b) && isDigit(b[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return parseSpecial(b, start)
	}

	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		j := i + 1
		if j < len(b) && (b[j] == '-' || b[j] == '+') {
			j++
		}
		expDigits := 0
		for j < len(b) && isDigit(b[j]) {
			j++
			expDigits++
		}
		if expDigits > 0 {
			i = j
		}
	}

	v, err := strconv.ParseFloat(stringpool.BytesToString(b[start:i]), 32)
	if err != nil && !isRangeError(err) {
		return 0, 0
	}
	// out of range values come back as ±Inf or 0 together with ErrRange
	return float32(v), i
}

// parseSpecial accepts nan, inf and infinity in any case after an optional sign.
func parseSpecial(b []byte, start int) (float32, int) {
	i := start
	if i < len(b) && (b[i] == '-' || b[i] == '+') {
		i++
	}
	for _, word := range [...]string{"infinity", "inf", "nan"} {
		if hasPrefixFold(b[i:], word) {
			end := i + len(word)
			if word == "nan" {
				// strconv rejects a signed nan
				return float32(math.NaN()), end
			}
			v, err := strconv.ParseFloat(stringpool.BytesToString(b[start:end]), 32)
			if err != nil {
				return 0, 0
			}
			return float32(v), end
		}
	}
	return 0, 0
}

func hasPrefixFold(b []byte, word string) bool {
	if len(b) < len(word) {
		return false
	}
	for i := 0; i < len(word); i++ {
		c := b[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != word[i] {
			return false
		}
	}
	return true
}

func isRangeError(err error) bool {
	var numErr *strconv.NumError
	return errors.As(err, &numErr) && numErr.Err == strconv.ErrRange
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
