package pipeline

import (
	"context"
	"fmt"

	"github.com/debrepo/debrepo/internal/signer"
)

// Confirmer answers the pre-flight signing prompt. Implementations must
// honor the context so the gate stays cancellable.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AssumeYes skips the prompt and always proceeds
var AssumeYes Confirmer = ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
	return true, nil
})

func (p *Pipeline) askConfirmation(ctx context.Context, ident signer.Identity) (bool, error) {
	if p.Confirm == nil {
		return false, fmt.Errorf("confirmation required but no confirmer is configured")
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.PromptTimeout.Duration)
	defer cancel()

	prompt := fmt.Sprintf("Sign repository %q as %s (%s)?", p.cfg.Suite, ident.Name, ident.KeyID)
	ok, err := p.Confirm.Confirm(cctx, prompt)
	if err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return ok, nil
}
