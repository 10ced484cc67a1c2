package probe

// Fixed detail strings shared by probes and the aggregator.
const (
	DetailTimedOut     = "timed out"
	DetailUnknownError = "unknown error"
	DetailIOError      = "marker check failed"
	DetailPanicked     = "probe panicked"
)

// Status is the normalized outcome of one probe run.
// Detail is raw text here; it is escaped by the aggregator before display.
type Status struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

func OK() Status                    { return Status{OK: true} }
func OKWith(detail string) Status   { return Status{OK: true, Detail: detail} }
func TimedOut() Status              { return Status{Detail: DetailTimedOut} }
func Unavailable(dep string) Status { return Status{Detail: dep + " not available"} }

// Fail is a failed status; an empty detail becomes DetailUnknownError.
func Fail(detail string) Status {
	if detail == "" {
		detail = DetailUnknownError
	}
	return Status{Detail: detail}
}
