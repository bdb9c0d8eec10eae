package resolution

import "devicelink/internal/mdall"

// Kind is the terminal result of a cascade run.
type Kind string

const (
	KindFound    Kind = "found"
	KindNotFound Kind = "not_found"
	KindError    Kind = "error"
)

// Output values for rows that did not resolve.
const (
	StateNotFound = "not found"
	StateError    = "error"
)

// Outcome is created once per registry row and never mutated afterwards.
// Stage holds the label of the stage that matched (Found) or the last stage
// attempted (NotFound). Malformed marks a NotFound caused by a match that
// carried no device id.
type Outcome struct {
	Kind             Kind   `json:"kind"`
	Stage            string `json:"stage,omitempty"`
	Archived         bool   `json:"archived,omitempty"`
	DeviceID         string `json:"device_id,omitempty"`
	TradeName        string `json:"trade_name,omitempty"`
	LicenceNumber    string `json:"licence_number,omitempty"`
	ManufacturerName string `json:"manufacturer_name,omitempty"`
	Malformed        bool   `json:"malformed,omitempty"`
	Message          string `json:"message,omitempty"`
}

func found(stage Stage, device mdall.Device) Outcome {
	return Outcome{
		Kind:             KindFound,
		Stage:            stage.Label,
		Archived:         stage.Archived(),
		DeviceID:         device.DeviceID.String(),
		TradeName:        device.TradeName,
		LicenceNumber:    device.LicenceNumber,
		ManufacturerName: device.CompanyName,
	}
}

func notFound(last *Stage, malformed bool) Outcome {
	out := Outcome{Kind: KindNotFound, Malformed: malformed}
	if last != nil {
		out.Stage = last.Label
		out.Archived = last.Archived()
	}
	return out
}

func failed(message string) Outcome {
	return Outcome{Kind: KindError, Message: message}
}

// State is the "MDALL State" value reported for the row. A malformed match
// reports the stage it came from.
func (o Outcome) State() string {
	switch o.Kind {
	case KindFound:
		return o.Stage
	case KindNotFound:
		if o.Malformed && o.Stage != "" {
			return o.Stage
		}
		return StateNotFound
	default:
		return StateError
	}
}

// DeviceName is the "Device Name" value reported for the row.
func (o Outcome) DeviceName() string {
	switch o.Kind {
	case KindFound:
		return o.TradeName
	case KindNotFound:
		return "Not found"
	default:
		return "Error: " + o.Message
	}
}

// Licence is the "Licence Number" value reported for the row.
func (o Outcome) Licence() string {
	if o.Kind == KindFound {
		return o.LicenceNumber
	}
	return mdall.NotAvailable
}

// Cacheable reports whether the outcome may be reused for the same inputs.
// Errors are transient and always retried on the next run.
func (o Outcome) Cacheable() bool {
	return o.Kind == KindFound || o.Kind == KindNotFound
}
