package sim

import (
	"strconv"

	"github.com/san-kum/pyrosim/internal/dynamo"
	"go.uber.org/zap"
)

// StepLogger logs every nth accepted step at debug level.
type StepLogger struct {
	logger *zap.Logger
	labels []string
	every  int
	n      int
}

func NewStepLogger(logger *zap.Logger, labels []string, every int) *StepLogger {
	if every <= 0 {
		every = 1
	}
	return &StepLogger{logger: logger, labels: labels, every: every}
}

func (s *StepLogger) OnStep(x dynamo.State, t float64) {
	s.n++
	if (s.n-1)%s.every != 0 {
		return
	}
	fields := make([]zap.Field, 0, len(x)+2)
	fields = append(fields, zap.Int("step", s.n-1), zap.Float64("t", t))
	for i, v := range x {
		name := "x" + strconv.Itoa(i)
		if i < len(s.labels) {
			name = s.labels[i]
		}
		fields = append(fields, zap.Float64(name, v))
	}
	s.logger.Debug("step", fields...)
}

// Recorder keeps every accepted state, not just the grid samples.
type Recorder struct {
	States []dynamo.State
	Times  []float64
}

func (r *Recorder) OnStep(x dynamo.State, t float64) {
	r.States = append(r.States, x.Clone())
	r.Times = append(r.Times, t)
}
