package service

import "context"

// compensator collects undo steps for a multi-step operation and runs them
// in reverse order when the operation fails partway through.
type compensator struct {
	steps []func(ctx context.Context) error
}

func (c *compensator) Add(step func(ctx context.Context) error) {
	c.steps = append(c.steps, step)
}

// Run executes the registered steps last-first. All steps run even when an
// earlier one fails; every error is returned so the caller can report them.
func (c *compensator) Run(ctx context.Context) []error {
	var errs []error
	for i := len(c.steps) - 1; i >= 0; i-- {
		if err := c.steps[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
