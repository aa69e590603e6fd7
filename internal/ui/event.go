package ui

// Stage is a step of rendering one document.
type Stage uint8

const (
	StageLoad Stage = iota + 1
	StageIndex
	StageRender
	StageWrite
)

// Status of a document within a stage.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusError
)

// Event reports progress of one document. An empty File describes the
// whole batch.
type Event struct {
	File   string
	Stage  Stage
	Status Status
}
