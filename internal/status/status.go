// Package status defines the flat status code taxonomy shared by every public
// operation in the engine, plus an Error type that carries an optional source
// location for diagnostics.
package status

import "fmt"

// Code is one value from the status taxonomy. OK is the zero value so a freshly
// zeroed result reads as success.
type Code int

const (
	OK Code = iota

	// Input validity
	ScriptNotScanned
	ScriptNotParsed
	ScriptNotAnalyzed
	CatalogScriptNotAnalyzed
	CatalogNull
	CatalogMismatch
	CatalogScriptUnknown

	// Registration
	ExternalIDCollision
	CatalogIDOutOfSync
	CatalogDescriptorPoolUnknown
	CatalogDescriptorTablesNull
	CatalogDescriptorTableNameEmpty
	CatalogDescriptorTableNameCollision

	// Completion
	CompletionMissesCursor
	CompletionMissesScannerToken
	CompletionStateIncompatible
	CompletionStrategyUnknown
	CompletionWithoutContinuation
	CompletionCandidateInvalid
	CompletionCatalogObjectInvalid
	CompletionTemplateInvalid
)

var names = map[Code]string{
	OK:                                  "OK",
	ScriptNotScanned:                    "SCRIPT_NOT_SCANNED",
	ScriptNotParsed:                     "SCRIPT_NOT_PARSED",
	ScriptNotAnalyzed:                   "SCRIPT_NOT_ANALYZED",
	CatalogScriptNotAnalyzed:            "CATALOG_SCRIPT_NOT_ANALYZED",
	CatalogNull:                         "CATALOG_NULL",
	CatalogMismatch:                     "CATALOG_MISMATCH",
	CatalogScriptUnknown:                "CATALOG_SCRIPT_UNKNOWN",
	ExternalIDCollision:                 "EXTERNAL_ID_COLLISION",
	CatalogIDOutOfSync:                  "CATALOG_ID_OUT_OF_SYNC",
	CatalogDescriptorPoolUnknown:        "CATALOG_DESCRIPTOR_POOL_UNKNOWN",
	CatalogDescriptorTablesNull:         "CATALOG_DESCRIPTOR_TABLES_NULL",
	CatalogDescriptorTableNameEmpty:     "CATALOG_DESCRIPTOR_TABLE_NAME_EMPTY",
	CatalogDescriptorTableNameCollision: "CATALOG_DESCRIPTOR_TABLE_NAME_COLLISION",
	CompletionMissesCursor:              "COMPLETION_MISSES_CURSOR",
	CompletionMissesScannerToken:        "COMPLETION_MISSES_SCANNER_TOKEN",
	CompletionStateIncompatible:         "COMPLETION_STATE_INCOMPATIBLE",
	CompletionStrategyUnknown:           "COMPLETION_STRATEGY_UNKNOWN",
	CompletionWithoutContinuation:       "COMPLETION_WITHOUT_CONTINUATION",
	CompletionCandidateInvalid:          "COMPLETION_CANDIDATE_INVALID",
	CompletionCatalogObjectInvalid:      "COMPLETION_CATALOG_OBJECT_INVALID",
	CompletionTemplateInvalid:           "COMPLETION_TEMPLATE_INVALID",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("STATUS(%d)", int(c))
}

// Location is a rune-offset span into some text buffer, mirroring the wire
// Location used across the scanner/parser/analyzer.
type Location struct {
	Offset uint32
	Length uint32
}

// Error is the error type returned by every public operation that can fail
// with a status code. Internal per-location diagnostics (scanner/parser/
// analyzer error lists) use Diagnostic instead, since those never abort their
// pipeline stage.
type Error struct {
	Code     Code
	Message  string
	Location *Location
}

func (e *Error) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s: %s (at %d)", e.Code, e.Message, e.Location.Offset)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewAt(code Code, loc Location, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Location: &loc}
}

// Diagnostic is a single (location, message) entry collected by the scanner,
// parser, or analyzer. These never stop their producing pass.
type Diagnostic struct {
	Location Location
	Message  string
}
