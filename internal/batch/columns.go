package batch

// Column names of the registry extracts and the result files.
const (
	ColCatNum        = "cat_num_cleaned"
	ColManufacturer  = "Manufacturer"
	ColIdentifier    = "device_identifier"
	ColCJRRCatNum    = "CJRR_cat_num"
	ColDeviceName    = "Device Name"
	ColLicenceNumber = "Licence Number"
	ColMDALLState    = "MDALL State"
)

// FormatHeader is the column order written by Format.
var FormatHeader = []string{ColCatNum, ColManufacturer, ColIdentifier}

// ResultHeader is the column order written by Resolve and Run.
var ResultHeader = []string{
	ColIdentifier,
	ColCJRRCatNum,
	ColManufacturer,
	ColDeviceName,
	ColLicenceNumber,
	ColMDALLState,
}
