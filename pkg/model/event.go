package model

// BackendEventKind tags the variant of a raw backend progress event.
type BackendEventKind int

// Backend event kinds. Fetch events carry byte counts for the whole bucket,
// install events carry package counts.
const (
	EventFetch BackendEventKind = iota
	EventInstall
)

// BackendEvent is a raw progress notification from the package backend.
// Completed and Total are bytes for EventFetch and packages for EventInstall.
// Backend-specific event shapes never cross the adapter boundary; this tagged
// variant is all the progress reporter ever sees.
type BackendEvent struct {
	Kind      BackendEventKind
	Name      string // package currently being fetched or installed
	Completed int64
	Total     int64
}
