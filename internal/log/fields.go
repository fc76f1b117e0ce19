package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldInvocationID = "invocation_id"
	FieldMessageID    = "message_id"
	FieldBucket       = "bucket"
	FieldKey          = "key"
	FieldEntries      = "entries"
	FieldTotal        = "total"
	FieldDryRun       = "dry_run"
	FieldError        = "error"
)

// Components defines standard component names
const (
	ComponentIngest   = "ingest"
	ComponentCloseout = "closeout"
	ComponentExtract  = "extract"
	ComponentLedger   = "ledger"
	ComponentNotify   = "notify"
	ComponentExport   = "export"
	ComponentStorage  = "storage"
	ComponentSheets   = "sheets"
	ComponentBackend  = "backend"
)
