package batch

import (
	"devicelink/internal/mdall"
	"devicelink/internal/resolution"
)

// Result is one resolved registry row.
type Result struct {
	Row              int                `json:"row"`
	DeviceIdentifier string             `json:"device_identifier"`
	CJRRCatNum       string             `json:"cjrr_cat_num"`
	Manufacturer     string             `json:"manufacturer"`
	Outcome          resolution.Outcome `json:"outcome"`
}

// NewResult pairs a row's inputs with its outcome.
func NewResult(row int, identifier, catNum, registryManufacturer string, out resolution.Outcome) Result {
	return Result{
		Row:              row,
		DeviceIdentifier: identifier,
		CJRRCatNum:       catNum,
		Manufacturer:     preferredManufacturer(registryManufacturer, out),
		Outcome:          out,
	}
}

// preferredManufacturer keeps the registry's value when it has one and falls
// back to the company reported by the service.
func preferredManufacturer(registry string, out resolution.Outcome) string {
	if registry != "" {
		return registry
	}
	if out.Kind == resolution.KindFound && out.ManufacturerName != "" {
		return out.ManufacturerName
	}
	return mdall.NotAvailable
}

// Values returns the row in ResultHeader order.
func (r Result) Values() []string {
	return []string{
		r.DeviceIdentifier,
		r.CJRRCatNum,
		r.Manufacturer,
		r.Outcome.DeviceName(),
		r.Outcome.Licence(),
		r.Outcome.State(),
	}
}
