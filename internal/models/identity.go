package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

var ErrInvalidIdentity = errors.New("invalid identity")

// Identity is the canonical form of a user reference. Callers hand us user ids as
// strings or as numbers; both collapse to the same trimmed decimal string so one
// user never ends up under two registry keys.
type Identity string

func (id Identity) String() string { return string(id) }

func (id Identity) IsZero() bool { return id == "" }

func IdentityFromInt(v int64) Identity {
	return Identity(strconv.FormatInt(v, 10))
}

// Int64 parses the identity as a numeric user id.
func (id Identity) Int64() (int64, error) {
	v, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not numeric", ErrInvalidIdentity, string(id))
	}
	return v, nil
}

// NormalizeIdentity accepts the loose shapes ids arrive in and returns the canonical Identity.
// A nil value yields the zero Identity, which validation later rejects as missing.
func NormalizeIdentity(v any) (Identity, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case Identity:
		return normalizeString(string(val)), nil
	case string:
		return normalizeString(val), nil
	case int:
		return IdentityFromInt(int64(val)), nil
	case int32:
		return IdentityFromInt(int64(val)), nil
	case int64:
		return IdentityFromInt(val), nil
	case uint32:
		return IdentityFromInt(int64(val)), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) || val != math.Trunc(val) {
			return "", fmt.Errorf("%w: %v is not an integer", ErrInvalidIdentity, val)
		}
		// Beyond int64 a float64 no longer names one integer exactly.
		if val < math.MinInt64 || val >= math.MaxInt64 {
			return "", fmt.Errorf("%w: %v is out of range", ErrInvalidIdentity, val)
		}
		return IdentityFromInt(int64(val)), nil
	case json.Number:
		return normalizeNumber(val.String())
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidIdentity, v)
	}
}

// UnmarshalJSON accepts both `"42"` and `42`.
func (id *Identity) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null":
		*id = ""
		return nil
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = normalizeString(s)
		return nil
	default:
		n, err := normalizeNumber(raw)
		if err != nil {
			return err
		}
		*id = n
		return nil
	}
}

func normalizeString(s string) Identity {
	s = strings.TrimSpace(s)
	// "007" and 7 are the same numeric user.
	if digits, ok := canonicalInteger(s); ok {
		return Identity(digits)
	}
	return Identity(s)
}

func normalizeNumber(raw string) (Identity, error) {
	if digits, ok := canonicalInteger(raw); ok {
		return Identity(digits), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidIdentity, raw)
	}
	return NormalizeIdentity(f)
}

// canonicalInteger renders a decimal integer literal of any size without leading zeros,
// so the string and number forms of one id agree even past int64.
func canonicalInteger(s string) (string, bool) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return "", false
	}
	return n.String(), true
}
