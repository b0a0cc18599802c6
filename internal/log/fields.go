package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldKey           = "key"
	FieldCount         = "count"
	FieldTransferID    = "transfer_id"
	FieldFromAccount   = "from_account"
	FieldToAccount     = "to_account"
	FieldAmount        = "amount"
	FieldCurrency      = "currency"
	FieldEventType     = "event_type"
	FieldBackend       = "backend"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentFilters   = "filters"
	ComponentStats     = "stats"
	ComponentTransfer  = "transfer"
	ComponentAccounts  = "accounts"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentNATS      = "nats"
	ComponentNotify    = "notify"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentReport    = "report"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpRead     = "read"
	OpWrite    = "write"
	OpDecode   = "decode"
	OpList     = "list"
	OpAppend   = "append"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpNotify   = "notify"
	OpExport   = "export"
	OpValidate = "validate"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransfer adds the identifying fields of a transfer.
func (f LogFields) WithTransfer(id, from, to, amount, currency string) LogFields {
	f[FieldTransferID] = id
	f[FieldFromAccount] = from
	f[FieldToAccount] = to
	f[FieldAmount] = amount
	f[FieldCurrency] = currency
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
