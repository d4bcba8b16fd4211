package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/steward/internal/config"
	"github.com/roach88/steward/internal/entity"
	"github.com/roach88/steward/internal/rules"
	"github.com/roach88/steward/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "steward.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// companyRegistry registers the rule set used throughout these tests:
// companies need a name and a recognized industry.
func companyRegistry() *rules.Registry {
	reg := rules.NewRegistry()
	reg.Register(entity.KindCompany, rules.FieldSet{
		Required: []string{"name", "industry"},
		Allowed: map[string][]string{
			"industry": {"software", "finance", "retail"},
		},
	})
	return reg
}

func newCompanyEngine(t *testing.T, s *store.Store, cfg config.Run, opts ...Option) *Engine {
	t.Helper()
	return New(s, companyRegistry(), cfg, opts...)
}

func seedIntake(t *testing.T, s *store.Store, id string, fields map[string]string) {
	t.Helper()
	err := s.InsertIntake(context.Background(), entity.Record{
		ID:     id,
		Kind:   entity.KindCompany,
		Fields: fields,
	})
	require.NoError(t, err)
}

func company(name string) map[string]string {
	return map[string]string{"name": name, "industry": "software"}
}

func companyMissingIndustry(name string) map[string]string {
	return map[string]string{"name": name}
}
