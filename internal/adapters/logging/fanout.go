package logging

import "github.com/andrescamacho/pharmasim-go/internal/application/common"

// Fanout forwards every entry to each logger
type Fanout []common.Logger

// NewFanout drops nil loggers
func NewFanout(loggers ...common.Logger) Fanout {
	out := make(Fanout, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

// Log implements common.Logger
func (f Fanout) Log(level, message string, metadata map[string]interface{}) {
	for _, l := range f {
		l.Log(level, message, metadata)
	}
}
