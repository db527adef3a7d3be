package resolve

import (
	"errors"

	"github.com/Sternrassler/item-quote-client/pkg/client"
	"github.com/Sternrassler/item-quote-client/pkg/item"
	"github.com/Sternrassler/item-quote-client/pkg/pricing"
)

// Line error codes.
const (
	CodeLookupMiss    = "lookup_miss"
	CodeUpstreamError = "upstream_error"
	CodeFetchFailed   = "fetch_failed"
)

// Result is the outcome of one batch.
type Result struct {
	Lines []Line `json:"lines"`

	// Quota is set when the batch stopped early on the upstream quota.
	Quota *QuotaSignal `json:"quotaExceeded,omitempty"`
}

// QuotaSignal tells the caller when the quota window reopens.
type QuotaSignal struct {
	RetryAfterSeconds int `json:"retryAfterSeconds"`
}

// Line is the outcome for one input identifier. Exactly one of the priced
// fields or Error is meaningful.
type Line struct {
	Input           string              `json:"input"`
	ID              int64               `json:"id,omitempty"`
	ItemNumber      string              `json:"itemNumber,omitempty"`
	Name            string              `json:"name,omitempty"`
	WorkDescription string              `json:"workDescription,omitempty"`
	RawTotal        float64             `json:"rawTotal"`
	RoundedTotal    float64             `json:"roundedTotal"`
	FinalTotal      float64             `json:"finalTotal"`
	Kind            pricing.Kind        `json:"kind,omitempty"`
	Components      []pricing.Component `json:"components,omitempty"`
	Cached          bool                `json:"cached"`
	Error           *LineError          `json:"error,omitempty"`
}

// LineError describes why a line could not be priced.
type LineError struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	StatusCode        int    `json:"statusCode,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`

	// Transient marks failures worth retrying later (5xx, 429, network).
	Transient bool `json:"transient,omitempty"`
}

// OK reports whether the line was priced.
func (l Line) OK() bool {
	return l.Error == nil
}

// Priced returns the lines without errors.
func (r *Result) Priced() []Line {
	out := make([]Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		if l.OK() {
			out = append(out, l)
		}
	}
	return out
}

func successLine(input string, it *item.Item, p pricing.Result) Line {
	return Line{
		Input:           input,
		ID:              it.ID,
		ItemNumber:      it.ItemNumber,
		Name:            it.Name,
		WorkDescription: it.WorkDescription(),
		RawTotal:        p.RawTotal,
		RoundedTotal:    p.RoundedTotal,
		FinalTotal:      p.RoundedTotal,
		Kind:            p.Kind,
		Components:      p.Components,
	}
}

func lookupMissLine(input string) Line {
	return Line{
		Input: input,
		Error: &LineError{
			Code:    CodeLookupMiss,
			Message: "no item id found for " + input,
		},
	}
}

func fetchErrorLine(input string, id int64, err error) Line {
	line := Line{Input: input, ID: id}

	var upErr *client.UpstreamError
	if errors.As(err, &upErr) {
		line.Error = &LineError{
			Code:              CodeUpstreamError,
			Message:           upErr.Message,
			StatusCode:        upErr.StatusCode,
			RetryAfterSeconds: upErr.RetryAfterSeconds,
			Transient:         upErr.Transient(),
		}
		return line
	}

	line.Error = &LineError{
		Code:    CodeFetchFailed,
		Message: err.Error(),
	}
	return line
}
