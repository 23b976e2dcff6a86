package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jmylchreest/flatscraper/internal/pipeline"
)

type jsonWriter struct {
	w      io.Writer
	indent string
}

func (j *jsonWriter) WriteReport(r *pipeline.Report) error {
	enc := json.NewEncoder(j.w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", j.indent)
	return enc.Encode(r)
}

// outcomeLine is one JSONL record: the outcome plus the cycle it belongs to.
type outcomeLine struct {
	Cycle    time.Time `json:"cycle"`
	Platform string    `json:"platform"`
	pipeline.Outcome
}

type jsonlWriter struct {
	w io.Writer
}

func (j *jsonlWriter) WriteReport(r *pipeline.Report) error {
	enc := json.NewEncoder(j.w)
	enc.SetEscapeHTML(false)
	for _, o := range r.Outcomes {
		if err := enc.Encode(outcomeLine{Cycle: r.StartedAt, Platform: r.Platform, Outcome: o}); err != nil {
			return err
		}
	}
	return nil
}
