package errors

const (
	// Generic codes
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeConflict           = "CONFLICT"
	CodeInternalServer     = "INTERNAL_SERVER"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeConfiguration      = "CONFIGURATION"

	// Collaborator codes
	CodeEventPublishError    = "EVENT_PUBLISH_ERROR"
	CodeEventFetchError      = "EVENT_FETCH_ERROR"
	CodeObjectMarshalError   = "OBJECT_MARSHALL_ERROR"
	CodeObjectUnmarshalError = "OBJECT_UNMARSHALL_ERROR"
	CodeDatabaseError        = "DATABASE_ERROR"
	CodeTransactionError     = "TRANSACTION_ERROR"
	CodeNodeCallError        = "NODE_CALL_ERROR"
	CodeRedisOperationError  = "REDIS_ERROR"
)

// transientCodes are failures of an external collaborator that are safe to retry.
var transientCodes = map[string]struct{}{
	CodeServiceUnavailable:  {},
	CodeEventPublishError:   {},
	CodeEventFetchError:     {},
	CodeDatabaseError:       {},
	CodeTransactionError:    {},
	CodeNodeCallError:       {},
	CodeRedisOperationError: {},
}
