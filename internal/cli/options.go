package cli

import "vmhealth/internal/report"

// Options holds the flag-populated run configuration. There is no
// config file and no environment variable lookup; flags are the whole
// surface.
type Options struct {
	Explain  bool
	Output   string
	Textfile string
	Debug    bool
}

func (o *Options) validate() (report.Format, error) {
	format, err := report.ParseFormat(o.Output)
	if err != nil {
		return "", &UsageError{Err: err}
	}
	return format, nil
}
