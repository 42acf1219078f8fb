package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Identity is one configured user: the opaque openid plus optional fallbacks
// used when the remote profile does not carry nid/cardNo.
type Identity struct {
	Name       string
	OpenID     string
	NodeID     string
	CardNumber string
}

// Label returns a printable handle for logs and metrics without leaking the openid.
func (i Identity) Label() string {
	if i.Name != "" {
		return i.Name
	}
	if len(i.OpenID) <= 6 {
		return "***"
	}
	return i.OpenID[:3] + "***" + i.OpenID[len(i.OpenID)-3:]
}

// EnrollmentInfo is the resolved class/node/card triple needed for a check-in.
// CourseTitle and Groups are display-only.
type EnrollmentInfo struct {
	ClassID     FlexString `json:"course"`
	NodeID      string     `json:"nid"`
	CardNumber  string     `json:"cardNo"`
	CourseTitle string     `json:"-"`
	Groups      []string   `json:"-"`
}

// ScoreReading is a score snapshot as returned by the remote service.
type ScoreReading = FlexString

// CheckInResult is the outcome of the join call. Status is the raw
// application-level status from the body.
type CheckInResult struct {
	Success bool
	Status  string
	Message string
}

// FlexString accepts a JSON string or number and keeps the original wire kind
// so that it can be echoed back unchanged.
type FlexString struct {
	Value   string
	Numeric bool
}

func (f FlexString) String() string { return f.Value }

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = FlexString{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString{Value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = FlexString{Value: n.String(), Numeric: true}
	return nil
}

func (f FlexString) MarshalJSON() ([]byte, error) {
	if f.Numeric {
		if _, err := strconv.ParseFloat(f.Value, 64); err == nil {
			return []byte(f.Value), nil
		}
	}
	return json.Marshal(f.Value)
}
