package constants

// SheetStatus is the canonical status for processed questionnaire sheets.
type SheetStatus string

// Stable values (store these exact strings in DB).
const (
	SheetStatusOK      SheetStatus = "OK"      // aligned, classified, reported
	SheetStatusSkipped SheetStatus = "SKIPPED" // alignment failed, flagged and skipped
	SheetStatusFailed  SheetStatus = "FAILED"  // decode or I/O failure
)
