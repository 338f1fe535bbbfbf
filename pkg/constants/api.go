package constants

// HTTP and API constants
const (
	// Content types
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderIfMatch       = "If-Match"
	HeaderETag          = "ETag"

	// Auth
	BearerPrefix = "Bearer "

	// Response Keys
	ResponseError   = "error"
	ResponseSuccess = "success"
	ResponseItems   = "items"
	ResponseFlows   = "flows"
	ResponseData    = "data"
	ResponseDetails = "details"
	FieldMessage    = "message"
)

// Context Keys
const (
	ContextKeyUser  = "user"
	ContextKeyToken = "token"
)

// Query parameter constants
const (
	ParamFormat = "format"
)

// Canvas render formats
const (
	FormatJSON    = "json"
	FormatText    = "text"
	FormatMermaid = "mermaid"
)
