// Package burn implements best-effort teardown of a masked identity and the
// live mailbox attached to it.
package burn

import (
	"context"
	"fmt"
	"strings"

	"github.com/zarlcorp/zmask/internal/identity"
	"github.com/zarlcorp/zmask/internal/mailtm"
)

// AccountDeleter removes a mailbox from the provider.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, token, id string) error
}

// InboxDiscarder drops the local inbox state and stops polling.
type InboxDiscarder interface {
	Reset()
}

// IdentityDiscarder forgets the identity.
type IdentityDiscarder interface {
	Discard()
}

// Request describes what to burn.
type Request struct {
	Identity   identity.Identity
	Account    *mailtm.Account // nil if no live mailbox
	Messages   int             // messages held locally
	Deleter    AccountDeleter  // nil if the provider is unreachable
	Inbox      InboxDiscarder
	Identities IdentityDiscarder
}

// StepStatus records the outcome of one cascade step.
type StepStatus struct {
	Description string
	Err         error
}

// Result summarizes a completed burn.
type Result struct {
	Name          string
	MessagesCount int
	Steps         []StepStatus
}

// HasErrors returns true if any step failed.
func (r Result) HasErrors() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Summary returns a human-readable summary of the burn result.
func (r Result) Summary() string {
	var b strings.Builder

	if r.HasErrors() {
		fmt.Fprintf(&b, "burned %s (with errors)", r.Name)
	} else {
		fmt.Fprintf(&b, "burned %s", r.Name)
	}

	for _, s := range r.Steps {
		if s.Err != nil {
			fmt.Fprintf(&b, "\n- %s: %v", s.Description, s.Err)
		} else {
			fmt.Fprintf(&b, "\n- %s", s.Description)
		}
	}

	return b.String()
}

// Plan returns what Execute will do, for the confirmation dialog.
func Plan(req Request) []string {
	var steps []string

	if deletesAccount(req) {
		steps = append(steps, fmt.Sprintf("delete mailbox %s", req.Account.Address))
	}
	if req.Inbox != nil {
		steps = append(steps, fmt.Sprintf("discard inbox (%d messages)", req.Messages))
	}
	steps = append(steps, fmt.Sprintf("discard identity %s", req.Identity.FullName()))

	return steps
}

// Execute runs the burn cascade. Every step is attempted even if an earlier
// one failed; the identity is always discarded last.
func Execute(ctx context.Context, req Request) Result {
	result := Result{Name: req.Identity.FullName()}

	// 1. delete the provider account
	if deletesAccount(req) {
		result.deleteAccount(ctx, req)
	}

	// 2. drop local inbox state
	if req.Inbox != nil {
		req.Inbox.Reset()
		result.MessagesCount = req.Messages
		result.Steps = append(result.Steps, StepStatus{
			Description: fmt.Sprintf("discarded %d messages", req.Messages),
		})
	}

	// 3. forget the identity
	if req.Identities != nil {
		req.Identities.Discard()
	}
	result.Steps = append(result.Steps, StepStatus{Description: "discarded identity"})

	return result
}

func (r *Result) deleteAccount(ctx context.Context, req Request) {
	addr := req.Account.Address
	if err := req.Deleter.DeleteAccount(ctx, req.Account.Token, req.Account.ID); err != nil {
		r.Steps = append(r.Steps, StepStatus{
			Description: fmt.Sprintf("mailbox deletion for %s", addr),
			Err:         err,
		})
		return
	}
	r.Steps = append(r.Steps, StepStatus{
		Description: fmt.Sprintf("deleted mailbox %s", addr),
	})
}

func deletesAccount(req Request) bool {
	return req.Deleter != nil && req.Account != nil && req.Account.ID != ""
}
