// Package exporter renders indicator results for download.
//
// Results are first turned into a Table (headers plus cells, percentages
// rounded for presentation, missing values left empty) and then written as
// CSV by CSVWriter or, for a full month, as a markdown document by
// WriteMarkdown.
package exporter
