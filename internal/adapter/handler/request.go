package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode"
)

var (
	errInvalidBody = errors.New("invalid request body")
	errNotInteger  = errors.New("number is not an integer")
)

// jsonInt accepts a JSON number or a numeric string. Strings follow parseInt
// rules (leading integer, trailing junk ignored). Null, absent and
// unparseable values leave Set false.
type jsonInt struct {
	Value int64
	Set   bool
}

func (n *jsonInt) UnmarshalJSON(b []byte) error {
	*n = jsonInt{}

	v, err := decodeScalar(b)
	if err != nil {
		return err
	}

	switch t := v.(type) {
	case json.Number:
		i, ok := integral(t.String())
		if !ok {
			return errNotInteger
		}
		n.Value, n.Set = i, true
	case string:
		n.Value, n.Set = parseLeadingInt(t)
	}
	return nil
}

func (n jsonInt) Ptr() *int64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

// jsonNumber coerces like JavaScript Number(): a string must parse in full
// after trimming, "" is 0, booleans are 0 or 1 and anything else is NaN.
// NaN, infinite, fractional and out-of-range values leave Set false.
type jsonNumber struct {
	Value int64
	Set   bool
}

func (n *jsonNumber) UnmarshalJSON(b []byte) error {
	*n = jsonNumber{}

	v, err := decodeScalar(b)
	if err != nil {
		return err
	}

	switch t := v.(type) {
	case json.Number:
		n.Value, n.Set = integral(t.String())
	case string:
		n.Value, n.Set = parseNumberString(t)
	case bool:
		if t {
			n.Value = 1
		}
		n.Set = true
	}
	return nil
}

func decodeScalar(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// integral parses a decimal literal that must denote a whole number within
// int64. 1e3 and 4.0 qualify, 2^63 does not.
func integral(s string) (int64, bool) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return i, true
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	// float64(math.MaxInt64) rounds up to 2^63
	if f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

func parseNumberString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			v, err := strconv.ParseInt(s[2:], base, 64)
			if err != nil {
				return 0, false
			}
			return v, true
		}
	}

	// ParseFloat also takes "inf" and "0x1p4"; integral rejects the former and
	// the base-prefix branch above already caught the latter.
	if strings.ContainsAny(s, "_xXpP") {
		return 0, false
	}
	return integral(s)
}

// parseLeadingInt parses an optionally signed run of decimal digits after
// leading whitespace and ignores whatever follows it.
func parseLeadingInt(s string) (int64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// decodeBody decodes a JSON request body into dst. An empty body decodes as
// {}; anything after the first value makes the body invalid.
func decodeBody(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		var extra json.RawMessage
		if err = dec.Decode(&extra); errors.Is(err, io.EOF) {
			return nil
		}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return errInvalidBody
}

type createLocationRequest struct {
	Name string `json:"name"`
}

type addItemRequest struct {
	ItemName   string  `json:"item_name"`
	Quantity   jsonInt `json:"quantity"`
	Barcode    *string `json:"barcode"`
	LocationID jsonInt `json:"location_id"`
}

type editItemRequest struct {
	ItemName *string `json:"item_name"`
	Barcode  *string `json:"barcode"`
	Quantity jsonInt `json:"quantity"`
}

type adjustRequest struct {
	LocationID jsonInt         `json:"location_id"`
	Items      json.RawMessage `json:"items"`
}

type adjustItem struct {
	ID    jsonInt    `json:"id"`
	Delta jsonNumber `json:"delta"`
}

type adjustResponse struct {
	Updated any `json:"updated"`
}
