package testutil

import (
	"strings"
	"testing"
)

// Scenario accumulates given/when clauses and runs the outcome as a single
// subtest named after the whole sentence, e.g.
//
//	Given("an employee").When("deleting a client").Then(t, "it is denied", fn)
type Scenario struct {
	clauses []string
}

// Given starts a scenario.
func Given(desc string) Scenario {
	return Scenario{clauses: []string{"given " + desc}}
}

// And adds another precondition or step.
func (s Scenario) And(desc string) Scenario {
	return s.with("and " + desc)
}

// When adds the action under test.
func (s Scenario) When(desc string) Scenario {
	return s.with("when " + desc)
}

// Then runs fn as a subtest of t.
func (s Scenario) Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run(strings.Join(append(s.clauses, "then "+desc), " "), fn)
}

func (s Scenario) with(clause string) Scenario {
	clauses := make([]string, 0, len(s.clauses)+1)
	clauses = append(clauses, s.clauses...)
	return Scenario{clauses: append(clauses, clause)}
}
