package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// InteractiveApprover asks the operator to type the database name before a
// destructive operation.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

func NewInteractiveApprover(verbose bool) crmingest.Approver {
	return &InteractiveApprover{verbose: verbose, input: os.Stdin, output: os.Stderr}
}

// RequestApproval approves only when the typed line, trimmed, equals target.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, target string) (bool, error) {
	fmt.Fprintf(a.output, "\n⚠️  WARNING: You are about to DROP and RECREATE every CRM table in '%s'\n", target)
	fmt.Fprintln(a.output, "This will permanently delete all clients, estimates, invoices and run history!")
	fmt.Fprintf(a.output, "\nTo confirm, type the database name '%s' and press Enter: ", target)

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(a.input).ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			answers <- answer{err: err}
			return
		}
		answers <- answer{line: strings.TrimSpace(line)}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case ans := <-answers:
		if ans.err != nil {
			return false, fmt.Errorf("failed to read input: %w", ans.err)
		}
		if ans.line == target {
			fmt.Fprintln(a.output, "✓ Confirmed. Proceeding with schema reset...")
			return true, nil
		}
		fmt.Fprintf(a.output, "✗ Input '%s' does not match database name '%s'. Operation cancelled.\n", ans.line, target)
		return false, nil
	}
}

var _ crmingest.Approver = (*InteractiveApprover)(nil)
