package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldPeriod     = "period"
	FieldMonth      = "month"
	FieldCategoryID = "category_id"
	FieldGoalID     = "goal_id"
	FieldExpenseID  = "expense_id"
	FieldIncomeID   = "income_id"
	FieldAmount     = "amount_cents"
	FieldInsights   = "insight_count"
	FieldHorizon    = "horizon_months"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentEngine  = "engine"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentReport  = "report"
	ComponentCache   = "cache"
	ComponentExport  = "export"
)
