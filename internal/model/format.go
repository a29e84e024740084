package model

import "strings"

// OutputFormat is the serialization variant selected by the user.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatCSV  OutputFormat = "csv"
	FormatText OutputFormat = "text"
)

// Formats lists the selectable formats in display order.
var Formats = []OutputFormat{FormatJSON, FormatCSV, FormatText}

// DownloadBaseName is the file name stem of downloaded results.
const DownloadBaseName = "scraped-data"

// ParseFormat maps raw input to an OutputFormat. Unknown or empty values
// fall back to json.
func ParseFormat(raw string) OutputFormat {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV:
		return FormatCSV
	case FormatText:
		return FormatText
	default:
		return FormatJSON
	}
}

// Extension is the file extension used for downloads in this format.
func (f OutputFormat) Extension() string {
	return string(ParseFormat(string(f)))
}

// Filename is the download file name, e.g. "scraped-data.csv".
func (f OutputFormat) Filename() string {
	return DownloadBaseName + "." + f.Extension()
}
