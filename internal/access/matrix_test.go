package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pawnshop/pkg/testutil"
)

func TestDefaultMatrix(t *testing.T) {
	employee := testutil.Given("an employee")

	employee.When("working with clients and transactions").Then(t, "everything but delete is allowed", func(t *testing.T) {
		for _, res := range []Resource{ResourceClient, ResourcePawnTransaction} {
			assert.True(t, DefaultMatrix.Permits(RoleEmployee, res, ActionRead))
			assert.True(t, DefaultMatrix.Permits(RoleEmployee, res, ActionCreate))
			assert.True(t, DefaultMatrix.Permits(RoleEmployee, res, ActionUpdate))
			assert.False(t, DefaultMatrix.Permits(RoleEmployee, res, ActionDelete))
		}
	})

	employee.When("working with item categories").Then(t, "nothing is allowed", func(t *testing.T) {
		for _, act := range []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete} {
			assert.False(t, DefaultMatrix.Permits(RoleEmployee, ResourceItemCategory, act))
		}
	})

	testutil.Given("an admin").Then(t, "every known pair is allowed", func(t *testing.T) {
		for res, acts := range DefaultMatrix {
			for act := range acts {
				assert.True(t, DefaultMatrix.Permits(RoleAdmin, res, act), "%s %s", res, act)
			}
		}
	})

	testutil.Given("an unknown pair").Then(t, "nobody is allowed", func(t *testing.T) {
		assert.Empty(t, DefaultMatrix.Allowed("invoice", ActionRead))
		assert.False(t, DefaultMatrix.Permits(RoleAdmin, ResourceClient, "export"))
	})
}
