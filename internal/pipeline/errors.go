package pipeline

// Stage identifies where in the pipeline a request failed. Language
// detection has no failure mode and therefore no stage constant.
type Stage string

const (
	StageInput       Stage = "input"
	StageExtraction  Stage = "extraction"
	StageGeneration  Stage = "generation"
	StageValidation  Stage = "validation"
	StagePersistence Stage = "persistence"
)

// Error codes surfaced to the API layer. Each maps to a distinct HTTP
// status and a distinct remediation message.
const (
	CodeInputInvalid      = "INPUT_INVALID"
	CodeOCRSuspect        = "OCR_SUSPECT"
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeServiceError      = "SERVICE_ERROR"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeSchemaViolation   = "SCHEMA_VIOLATION"
	CodePersistenceFailed = "PERSISTENCE_FAILED"
)

// Error is the single failure type crossing the pipeline boundary.
// Message is user-facing and localized; Err carries the raw diagnostic
// for logs and is never shown to the user.
type Error struct {
	Stage   Stage
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Stage) + ": " + e.Err.Error()
	}
	return string(e.Stage) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }
