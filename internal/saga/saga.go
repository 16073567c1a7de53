// Package saga runs a fixed sequence of remote steps in order and undoes the
// completed ones, in reverse, when a later step fails.
package saga

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StepStatus represents the outcome of a single step
type StepStatus string

const (
	StepStatusCompleted          StepStatus = "completed"
	StepStatusFailed             StepStatus = "failed"
	StepStatusSkipped            StepStatus = "skipped"
	StepStatusCompensated        StepStatus = "compensated"
	StepStatusCompensationFailed StepStatus = "compensation_failed"
)

// ExecuteFunc performs a step
type ExecuteFunc func(ctx context.Context) error

// CompensateFunc undoes a completed step
type CompensateFunc func(ctx context.Context) error

// Step is a single unit of the saga
type Step struct {
	Name       string
	Execute    ExecuteFunc
	Compensate CompensateFunc
	// Skip is evaluated right before the step would run
	Skip func() bool
	// Timeout bounds Execute; zero means no timeout
	Timeout time.Duration
	// Pivot marks the point of no return. Once a pivot step completes, a
	// later failure no longer compensates the steps before it.
	Pivot bool
}

// StepResult records what happened to a step
type StepResult struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// PanicError is returned for a step whose Execute panicked
type PanicError struct {
	Step  string
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("step %s panicked: %v", e.Step, e.Value)
}

// Definition is an ordered list of steps
type Definition struct {
	Name  string
	Steps []*Step
}

// NewDefinition creates an empty saga definition
func NewDefinition(name string) *Definition {
	return &Definition{Name: name}
}

// AddStep appends a step
func (d *Definition) AddStep(step *Step) *Definition {
	d.Steps = append(d.Steps, step)
	return d
}

// Execution is the result of running a definition
type Execution struct {
	Saga        string        `json:"saga"`
	Results     []*StepResult `json:"results"`
	FailedStep  string        `json:"failedStep,omitempty"`
	Err         error         `json:"-"`
	Compensated bool          `json:"compensated"`
}

// Succeeded reports whether every step completed or was skipped
func (e *Execution) Succeeded() bool {
	return e.Err == nil
}

// Result returns the recorded result of a step, if it ran
func (e *Execution) Result(name string) (*StepResult, bool) {
	for _, r := range e.Results {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Run executes the steps strictly in sequence. The first failing step stops
// the run; steps completed before it, and after the last pivot, are
// compensated in reverse order.
// Compensation errors are recorded and logged but never replace the
// original failure.
func Run(ctx context.Context, def *Definition, logger *zap.Logger) *Execution {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("saga", def.Name))
	exec := &Execution{Saga: def.Name}

	var completed []*Step
	for _, step := range def.Steps {
		if step.Skip != nil && step.Skip() {
			exec.Results = append(exec.Results, &StepResult{Name: step.Name, Status: StepStatusSkipped})
			log.Debug("Step skipped", zap.String("step", step.Name))
			continue
		}

		result, err := runStep(ctx, step)
		exec.Results = append(exec.Results, result)
		if err != nil {
			exec.FailedStep = step.Name
			exec.Err = err
			log.Warn("Step failed", zap.String("step", step.Name), zap.Error(err))
			break
		}
		completed = append(completed, step)
		if step.Pivot {
			completed = nil
		}
		log.Debug("Step completed", zap.String("step", step.Name), zap.Duration("duration", result.Duration))
	}

	if exec.Err == nil {
		return exec
	}

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		result, _ := exec.Result(step.Name)
		// compensation must run even if the caller's context is already done
		if err := step.Compensate(context.WithoutCancel(ctx)); err != nil {
			result.Status = StepStatusCompensationFailed
			result.Error = err.Error()
			log.Error("Compensation failed", zap.String("step", step.Name), zap.Error(err))
			continue
		}
		result.Status = StepStatusCompensated
		exec.Compensated = true
		log.Info("Step compensated", zap.String("step", step.Name))
	}

	return exec
}

func runStep(ctx context.Context, step *Step) (result *StepResult, err error) {
	result = &StepResult{Name: step.Name}
	start := time.Now()

	stepCtx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Step: step.Name, Value: r}
		}
		result.Duration = time.Since(start)
		if err != nil {
			result.Status = StepStatusFailed
			result.Error = err.Error()
		} else {
			result.Status = StepStatusCompleted
		}
	}()

	return result, step.Execute(stepCtx)
}
