package model

// Status is the normalized install phase reported to progress callbacks.
type Status int

// Install phases, reported in this order for every request.
const (
	StatusDownloading Status = iota
	StatusInstalling
)

func (s Status) String() string {
	switch s {
	case StatusDownloading:
		return "downloading"
	case StatusInstalling:
		return "installing"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of a bucket install request. Err is nil on
// success. A coalesced request shares the Result of the request it merged into.
type Result struct {
	Bucket Bucket
	Err    error
}

// Failed reports whether the install ended with an error.
func (r Result) Failed() bool {
	return r.Err != nil
}
