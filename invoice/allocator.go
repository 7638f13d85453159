/*
Package invoice implements the invoice-side domain logic: sequence number
allocation, movement recording with invoice derivation, and the invoice
state machine.

PURPOSE:
  Turns batches of stock transfers into auto-generated pending invoices
  and drives invoice field updates, including the delivered transition
  that triggers artifact generation.

KEY CONCEPTS:
  - NextNumber: derives the next MOV-prefixed sequence number
  - Recorder:   validates and persists movement batches, derives invoices
  - StateMachine: applies patches to invoice rows, fires artifacts

SEE ALSO:
  - ledger: record types and Gateway
  - artifact: txt artifact generation invoked on delivery
*/
package invoice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/retailops/delivery-engine/ledger"
)

// NumberPrefix marks system-generated invoice numbers.
const NumberPrefix = "MOV"

// NextNumber computes the next sequence number for system-generated
// invoices: filter existing numbers by prefix, parse the trailing digits,
// take the max, add one, zero-pad to 4 digits.
//
// Malformed numbers (non-numeric suffix) are excluded from the candidate
// set rather than failing; an empty candidate set yields sequence 1.
//
// Allocation recomputes from a full scan on every call with no reservation
// step, so concurrent batches can race and collide. Accepted for the
// single-writer deployment this runs in.
func NextNumber(existing []string) string {
	max := 0
	for _, n := range existing {
		if !strings.HasPrefix(n, NumberPrefix) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimPrefix(n, NumberPrefix))
		if err != nil || seq < 0 {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return fmt.Sprintf("%s%04d", NumberPrefix, max+1)
}

// nextNumberFrom is a convenience over a full invoice listing.
func nextNumberFrom(invoices []ledger.Invoice) string {
	numbers := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		numbers = append(numbers, inv.Number)
	}
	return NextNumber(numbers)
}
