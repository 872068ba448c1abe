package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Identity
		wantErr bool
	}{
		{"string", "alice", "alice", false},
		{"padded string", "  bob ", "bob", false},
		{"numeric string", "42", "42", false},
		{"leading zeros", "0042", "42", false},
		{"int", 42, "42", false},
		{"int64", int64(42), "42", false},
		{"float64 from json", float64(42), "42", false},
		{"json number", json.Number("42"), "42", false},
		{"nil", nil, "", false},
		{"fractional", 4.2, "", true},
		{"float beyond int64", 1e19, "", true},
		{"float far beyond int64", 5e19, "", true},
		{"float below int64", -1e19, "", true},
		{"smallest int64 float", float64(math.MinInt64), "-9223372036854775808", false},
		{"big json number", json.Number("99999999999999999999"), "99999999999999999999", false},
		{"big numeric string", "0099999999999999999999", "99999999999999999999", false},
		{"big json number in exponent form", json.Number("1e19"), "", true},
		{"unsupported", []int{1}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := NormalizeIdentity(tt.in)
			if tt.wantErr {
				req.ErrorIs(err, ErrInvalidIdentity)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}

func TestIdentity_UnmarshalJSON_StringAndNumberCollapse(t *testing.T) {
	req := require.New(t)

	var payload struct {
		A Identity `json:"a"`
		B Identity `json:"b"`
		C Identity `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a": 7, "b": "7", "c": null}`), &payload)

	req.NoError(err)
	req.Equal(payload.A, payload.B)
	req.Equal(Identity("7"), payload.A)
	req.True(payload.C.IsZero())
}

func TestIdentity_UnmarshalJSON_Keeps_Ids_Beyond_Int64_Apart(t *testing.T) {
	req := require.New(t)

	var payload struct {
		A Identity `json:"a"`
		B Identity `json:"b"`
		C Identity `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a": 12345678901234567890, "b": 99999999999999999999, "c": "99999999999999999999"}`), &payload)

	req.NoError(err)
	req.Equal(Identity("12345678901234567890"), payload.A)
	req.Equal(Identity("99999999999999999999"), payload.B)
	req.Equal(payload.B, payload.C)
	req.NotEqual(payload.A, payload.B)
}

func TestIdentity_UnmarshalJSON_RejectsGarbage(t *testing.T) {
	var id Identity
	require.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestMessage_Involves(t *testing.T) {
	req := require.New(t)
	msg := Message{SenderID: "alice", ReceiverID: "bob"}

	req.True(msg.Involves("alice"))
	req.True(msg.Involves("bob"))
	req.False(msg.Involves("carol"))
}
