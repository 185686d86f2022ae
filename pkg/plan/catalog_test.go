package plan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coachbill/pkg/plan"
)

func testPlans() map[string]plan.Plan {
	return map[string]plan.Plan{
		"beginner": {
			ID:                "beginner",
			Name:              "Beginner",
			StudentLimit:      5,
			Price:             plan.Money{Amount: 3900, Currency: "BRL"},
			ExtraStudentPrice: plan.Money{Amount: 780, Currency: "BRL"},
			Public:            true,
		},
		"starter": {
			ID:                "starter",
			Name:              "Starter",
			StudentLimit:      15,
			Price:             plan.Money{Amount: 7900, Currency: "BRL"},
			ExtraStudentPrice: plan.Money{Amount: 646, Currency: "BRL"},
			Public:            true,
		},
		"growth": {
			ID:                "growth",
			Name:              "Growth",
			StudentLimit:      50,
			Price:             plan.Money{Amount: 14900, Currency: "BRL"},
			ExtraStudentPrice: plan.Money{Amount: 390, Currency: "BRL"},
			Public:            true,
		},
		"elite": {
			ID:                "elite",
			Name:              "Elite",
			StudentLimit:      150,
			Price:             plan.Money{Amount: 29900, Currency: "BRL"},
			ExtraStudentPrice: plan.Money{Amount: 250, Currency: "BRL"},
		},
	}
}

func TestCatalog_Lookup(t *testing.T) {
	t.Parallel()

	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(testPlans()))
	require.NoError(t, err)

	t.Run("known plan", func(t *testing.T) {
		t.Parallel()
		p, err := catalog.Lookup("starter")
		require.NoError(t, err)
		assert.Equal(t, "Starter", p.Name)
		assert.EqualValues(t, 15, p.StudentLimit)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		_, err := catalog.Lookup("enterprise")
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})
}

func TestCatalog_FindSuitable(t *testing.T) {
	t.Parallel()

	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(testPlans()))
	require.NoError(t, err)

	tests := []struct {
		name     string
		students int64
		wantPlan string
	}{
		{"zero students gets smallest tier", 0, "beginner"},
		{"exact limit match", 5, "beginner"},
		{"one over smallest tier", 6, "starter"},
		{"mid range", 30, "growth"},
		{"top tier boundary", 150, "elite"},
		{"beyond top tier falls back to largest", 500, "elite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantPlan, catalog.FindSuitable(tt.students).ID)
		})
	}
}

func TestCatalog_NextAbove(t *testing.T) {
	t.Parallel()

	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(testPlans()))
	require.NoError(t, err)

	starter, err := catalog.Lookup("starter")
	require.NoError(t, err)

	next, ok := catalog.NextAbove(starter)
	require.True(t, ok)
	assert.Equal(t, "growth", next.ID)

	top := catalog.Largest()
	assert.Equal(t, "elite", top.ID)

	_, ok = catalog.NextAbove(top)
	assert.False(t, ok)
}

func TestCatalog_List_Ordered(t *testing.T) {
	t.Parallel()

	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(testPlans()))
	require.NoError(t, err)

	list := catalog.List()
	require.Len(t, list, 4)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].StudentLimit, list[i].StudentLimit)
	}
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Parallel()

	t.Run("empty catalog", func(t *testing.T) {
		t.Parallel()
		_, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(nil))
		assert.ErrorIs(t, err, plan.ErrEmptyCatalog)
	})

	t.Run("ID mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(map[string]plan.Plan{
			"a": {ID: "b", StudentLimit: 5},
		}))
		assert.ErrorIs(t, err, plan.ErrInvalidPlanConfiguration)
	})

	t.Run("non-positive limit", func(t *testing.T) {
		t.Parallel()
		_, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(map[string]plan.Plan{
			"a": {ID: "a", StudentLimit: 0},
		}))
		assert.ErrorIs(t, err, plan.ErrInvalidPlanConfiguration)
	})

	t.Run("mixed currencies", func(t *testing.T) {
		t.Parallel()
		_, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(map[string]plan.Plan{
			"a": {
				ID:                "a",
				StudentLimit:      5,
				Price:             plan.Money{Amount: 100, Currency: "BRL"},
				ExtraStudentPrice: plan.Money{Amount: 10, Currency: "USD"},
			},
		}))
		assert.ErrorIs(t, err, plan.ErrInvalidPlanConfiguration)
	})
}
