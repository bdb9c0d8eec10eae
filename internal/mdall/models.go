package mdall

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ListingState selects active or archived licence listings.
type ListingState string

const (
	Active   ListingState = "active"
	Archived ListingState = "archived"
)

// Defaults reported when the device record omits a field.
const (
	UnknownTradeName = "Unknown"
	NotAvailable     = "N/A"
)

// DeviceID is the service's key linking an identifier match to its device
// record. The service emits it as a JSON number; strings are accepted too.
// Null, missing and non-scalar values decode to the empty DeviceID.
type DeviceID string

func (d *DeviceID) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case json.Number:
		*d = DeviceID(t.String())
	case string:
		*d = DeviceID(strings.TrimSpace(t))
	default:
		*d = ""
	}
	return nil
}

func (d DeviceID) String() string {
	return string(d)
}

// IsZero reports whether the id is absent.
func (d DeviceID) IsZero() bool {
	return d == ""
}

// Match is one entry returned by the identifier query.
type Match struct {
	DeviceID         DeviceID `json:"device_id"`
	DeviceIdentifier string   `json:"device_identifier"`
}

// Device is the subset of a device record used for linkage. Absent fields
// carry the UnknownTradeName / NotAvailable defaults.
type Device struct {
	DeviceID      DeviceID
	TradeName     string
	LicenceNumber string
	CompanyName   string
}

func deviceFromFields(id DeviceID, fields map[string]any) Device {
	return Device{
		DeviceID:      id,
		TradeName:     textOr(fields, "trade_name", UnknownTradeName),
		LicenceNumber: textOr(fields, "licence_number", NotAvailable),
		CompanyName:   textOr(fields, "company_name", NotAvailable),
	}
}

// textOr reads a string or number field, falling back when it is missing,
// null or blank.
func textOr(fields map[string]any, key, fallback string) string {
	switch v := fields[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case json.Number:
		return v.String()
	}
	return fallback
}
