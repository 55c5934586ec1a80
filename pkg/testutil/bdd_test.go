package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScenarioNamesSubtest(t *testing.T) {
	base := Given("an admin")
	var names []string

	base.When("deleting").Then(t, "it passes", func(t *testing.T) { names = append(names, t.Name()) })
	base.And("a revoked token").When("reading").Then(t, "it fails", func(t *testing.T) { names = append(names, t.Name()) })

	assert.Equal(t, []string{
		"TestScenarioNamesSubtest/given_an_admin_when_deleting_then_it_passes",
		"TestScenarioNamesSubtest/given_an_admin_and_a_revoked_token_when_reading_then_it_fails",
	}, names)
}
