package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldBytes     = "bytes_out"
	FieldClientIP  = "client_ip"

	// Connection
	FieldClientID = "client_id"
	FieldRoomID   = "room_id"

	// Recording
	FieldFilename   = "filename"
	FieldChunkCount = "chunk_count"
	FieldSize       = "size_bytes"

	// Service
	FieldService = "service"
)
