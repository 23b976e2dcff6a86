package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/flatscraper/internal/pipeline"
)

type yamlWriter struct {
	w io.Writer
}

func (y *yamlWriter) WriteReport(r *pipeline.Report) error {
	enc := yaml.NewEncoder(y.w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
