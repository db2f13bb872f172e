package domain

// StreamStatus represents the status of a run stream.
type StreamStatus string

const (
	StreamStatusIdle     StreamStatus = "idle"
	StreamStatusInflight StreamStatus = "inflight"
	StreamStatusDone     StreamStatus = "done"
	StreamStatusError    StreamStatus = "error"
)

// ValuesShape records which wire form the "values" field of a thread state had.
type ValuesShape string

const (
	ValuesShapeEmpty  ValuesShape = "empty"
	ValuesShapeList   ValuesShape = "list"
	ValuesShapeObject ValuesShape = "object"
)

// Message types used by the backend.
const (
	MessageTypeHuman  = "human"
	MessageTypeAI     = "ai"
	MessageTypeTool   = "tool"
	MessageTypeSystem = "system"
)

// Stream event names sent on POST /runs/stream.
const (
	StreamEventMetadata = "metadata"
	StreamEventData     = "data"
	StreamEventError    = "error"
	StreamEventEnd      = "end"
)
