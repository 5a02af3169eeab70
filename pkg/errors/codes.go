package errors

// ErrorCode is a string representation of a specific error condition.
// Codes are grouped by domain area with a numeric suffix so that log
// aggregation and API clients can match on stable identifiers.
type ErrorCode string

// ─────────────────────────────────────────────────────────────────────────────
// Common codes (cross-cutting)
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_006"
	ErrCodeTimeout            ErrorCode = "COMMON_007"
	ErrCodeValidation         ErrorCode = "COMMON_008"
	ErrCodeSerialization      ErrorCode = "COMMON_009"
	ErrCodeDatabaseError      ErrorCode = "COMMON_010"
	ErrCodeCacheError         ErrorCode = "COMMON_011"
	ErrCodeExternalService    ErrorCode = "COMMON_012"
	ErrCodeNotImplemented     ErrorCode = "COMMON_013"
)

// Short aliases used at call sites throughout the codebase.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)

// ─────────────────────────────────────────────────────────────────────────────
// Clause parsing codes
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeClauseEmpty        ErrorCode = "CLAUSE_001"
	ErrCodeCategoryInvalid    ErrorCode = "CLAUSE_002"
	ErrCodeRecordNotFound     ErrorCode = "CLAUSE_003"
	ErrCodeRecordExists       ErrorCode = "CLAUSE_004"
	ErrCodeCorrectionRejected ErrorCode = "CLAUSE_005"
)

// ─────────────────────────────────────────────────────────────────────────────
// Rule store codes
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeRuleNotFound       ErrorCode = "RULE_001"
	ErrCodeRulePatternInvalid ErrorCode = "RULE_002"
	ErrCodeRuleStoreDown      ErrorCode = "RULE_003"
)

// String returns the code identifier itself; ErrorCode is already textual.
func (c ErrorCode) String() string { return string(c) }
