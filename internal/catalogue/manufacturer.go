// Package catalogue re-punctuates registry catalogue numbers into the
// identifier format the MDALL lookup service indexes on.
//
// The registry stores catalogue numbers cleaned of hyphens and other
// punctuation. Each manufacturer family publishes its numbers with its own
// dash pattern, so the formatter dispatches on the registry's manufacturer
// label to an ordered list of shape rules. The first matching rule wins;
// labels without a rule family and numbers matching no rule pass through
// unchanged.
//
// Domain Purity: this package performs no I/O and holds no mutable state.
package catalogue

import "strings"

// Manufacturer is a manufacturer label exactly as recorded by the registry.
type Manufacturer string

const (
	Stryker      Manufacturer = "Stryker/Osteonics/Howmedica"
	ZimmerBiomet Manufacturer = "Zimmer/Biomet/Sulzer/Centerpulse"
	DePuy        Manufacturer = "DePuy/Finsbury/J & J"

	// Labels that are known to the registry but need no re-punctuation.
	SmithNephew Manufacturer = "Smith & Nephew"
	MicroPort   Manufacturer = "MicroPort/Wright Medical"
)

// ParseManufacturer trims surrounding whitespace from a registry label.
// The result is compared by exact match; no case folding is applied.
func ParseManufacturer(label string) Manufacturer {
	return Manufacturer(strings.TrimSpace(label))
}

func (m Manufacturer) String() string {
	return string(m)
}

// Record is one registry row as consumed by the formatter.
type Record struct {
	CleanedCatalogueNumber string
	Manufacturer           Manufacturer
}

// NewRecord builds a Record from raw column values, trimming both.
func NewRecord(cleanedCatalogueNumber, manufacturer string) Record {
	return Record{
		CleanedCatalogueNumber: strings.TrimSpace(cleanedCatalogueNumber),
		Manufacturer:           ParseManufacturer(manufacturer),
	}
}

// Identifier returns the formatted device identifier for the record.
func (r Record) Identifier() string {
	return Format(r.CleanedCatalogueNumber, r.Manufacturer.String())
}
