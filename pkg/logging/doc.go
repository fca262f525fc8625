// Package logging provides the component logger used across the archive.
//
// Entries have the form
//
//	[2006-01-02 15:04:05.000] [people] [WARN] skipping corrupt record ...
//
// The log directory is always passed in by the caller; the package never
// looks up home directories or environment variables on its own.
package logging
