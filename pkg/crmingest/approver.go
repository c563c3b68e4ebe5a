package crmingest

import "context"

// Approver handles user interaction for approval workflows,
// used before destructive operations such as dropping the CRM tables.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type the target name for confirmation
type Approver interface {
	// RequestApproval asks for confirmation before target is destroyed.
	// Returns true if approved, false if denied.
	RequestApproval(ctx context.Context, target string) (bool, error)
}
