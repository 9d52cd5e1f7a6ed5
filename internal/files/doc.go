// Package files writes the files the application produces, such as saved
// monthly reports, below the configured output directories.
//
// Paths starting with "reports/" or "logs/" resolve into the configured
// reports and logs directories; other relative paths resolve against the
// base directory. Writes go through a temporary file and a rename so that
// readers never observe a partial report.
package files
