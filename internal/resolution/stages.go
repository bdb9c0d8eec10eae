package resolution

import "devicelink/internal/mdall"

// Source selects which registry value a stage queries with.
type Source string

const (
	// SourceFormatted is the manufacturer-formatted identifier.
	SourceFormatted Source = "identifier"
	// SourceRaw is the registry's cleaned catalogue number as stored.
	SourceRaw Source = "CJRR"
)

// Stage describes one query attempt in the cascade.
type Stage struct {
	Label  string
	Source Source
	State  mdall.ListingState
}

// Stage labels, also used verbatim as the "MDALL State" output value.
const (
	LabelActiveFormatted   = "active (identifier)"
	LabelActiveRaw         = "active (CJRR)"
	LabelArchivedFormatted = "archived (identifier)"
	LabelArchivedRaw       = "archived (CJRR)"
)

// Stages is the fixed priority order walked by Cascade.Resolve. The first
// stage that returns a non-empty match list wins; later stages never run.
var Stages = []Stage{
	{Label: LabelActiveFormatted, Source: SourceFormatted, State: mdall.Active},
	{Label: LabelActiveRaw, Source: SourceRaw, State: mdall.Active},
	{Label: LabelArchivedFormatted, Source: SourceFormatted, State: mdall.Archived},
	{Label: LabelArchivedRaw, Source: SourceRaw, State: mdall.Archived},
}

// Value picks the query value for the stage from the two registry values.
func (s Stage) Value(formatted, raw string) string {
	if s.Source == SourceRaw {
		return raw
	}
	return formatted
}

// Archived reports whether the stage queries archived listings.
func (s Stage) Archived() bool {
	return s.State == mdall.Archived
}
