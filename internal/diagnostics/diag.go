package diagnostics

import (
	"github.com/rs/zerolog"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Diagnostic is a finding about the host setup, e.g. a hardware entry that
// names an unknown family.
type Diagnostic struct {
	Severity       Severity       `json:"severity" yaml:"severity"`
	Code           string         `json:"code" yaml:"code"`
	Summary        string         `json:"summary" yaml:"summary"`
	Detail         string         `json:"detail,omitempty" yaml:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty" yaml:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty" yaml:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

type Report []Diagnostic

func (r Report) HasErrors() bool {
	for _, d := range r {
		if d.Severity == Err {
			return true
		}
	}
	return false
}

// Log writes every diagnostic of r to l at the level matching its severity.
func (r Report) Log(l *zerolog.Logger) {
	for _, d := range r {
		var ev *zerolog.Event
		switch d.Severity {
		case Err:
			ev = l.Error()
		case Warn:
			ev = l.Warn()
		default:
			ev = l.Info()
		}
		ev = ev.Str("code", d.Code)
		if d.Detail != "" {
			ev = ev.Str("detail", d.Detail)
		}
		if len(d.SuggestedFixes) > 0 {
			ev = ev.Strs("fixes", d.SuggestedFixes)
		}
		if len(d.Evidence) > 0 {
			ev = ev.Fields(d.Evidence)
		}
		ev.Msg(d.Summary)
	}
}
