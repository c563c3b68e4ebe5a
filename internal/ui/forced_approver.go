package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

const resetBanner = `
  ############################################################
  #  DANGER: schema reset without confirmation (--force)     #
  ############################################################

  Every CRM table in '${target}' will be dropped and recreated:
  clients, dup_name_clients, estimates, invoices, ingest_runs.
`

// ForcedApprover approves after a visible countdown. Used with --force.
type ForcedApprover struct {
	verbose bool
	output  io.Writer
	sleepFn func(time.Duration)
}

func NewForcedApprover(verbose bool) crmingest.Approver {
	return &ForcedApprover{verbose: verbose, output: os.Stderr, sleepFn: time.Sleep}
}

// RequestApproval counts down crmingest.DefaultForceApprovalCountdown and approves
// unless ctx is cancelled first.
func (a *ForcedApprover) RequestApproval(ctx context.Context, target string) (bool, error) {
	fmt.Fprint(a.output, strings.ReplaceAll(resetBanner, "${target}", target))
	fmt.Fprintln(a.output)

	for i := int(crmingest.DefaultForceApprovalCountdown.Seconds()); i > 0; i-- {
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(a.output)
			return false, err
		}
		fmt.Fprintf(a.output, "\rResetting in: %d seconds... (Press Ctrl+C to cancel)", i)
		a.sleepFn(time.Second)
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\r✓ Proceeding with schema reset...                              \n")
	return true, nil
}

var _ crmingest.Approver = (*ForcedApprover)(nil)
