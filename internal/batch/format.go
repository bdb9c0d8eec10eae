package batch

import (
	"context"
	"log/slog"

	"devicelink/internal/catalogue"
	"devicelink/internal/tabular"
)

// Format adds a device_identifier column computed by catalogue.Format. The
// input must carry cat_num_cleaned and Manufacturer.
func Format(ctx context.Context, in *tabular.Table, logger *slog.Logger) (*tabular.Table, error) {
	if err := in.Require(ColCatNum, ColManufacturer); err != nil {
		return nil, err
	}

	out := tabular.NewTable(FormatHeader...)
	for i := range in.Len() {
		catNum := in.Get(i, ColCatNum)
		manufacturer := in.Get(i, ColManufacturer)
		identifier, rule := catalogue.FormatWithRule(catNum, manufacturer)
		logger.DebugContext(ctx, "formatted catalogue number",
			"row", i+1,
			"cat_num_cleaned", catNum,
			"manufacturer", manufacturer,
			"device_identifier", identifier,
			"rule", rule,
		)
		out.Append(catNum, manufacturer, identifier)
	}

	logger.InfoContext(ctx, "added device_identifier", "rows", out.Len())
	return out, nil
}
