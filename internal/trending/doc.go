// Package trending holds the domain types and component interfaces for the
// trending archive: parsed records, archive rows, derived views, the stage
// error taxonomy, and the contracts the pipeline and analytics engine are
// wired against.
package trending
