package project

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmetrics/internal/testutil"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const martsSchema = `version: 2
models:
  - name: customer_rollup
    meta:
      rollup: true
    columns:
      - name: customer_id
      - name: total_amount
  - name: warehouse_summary
    config:
      meta:
        rollup: "true"
    columns:
      - name: total_cost
      - name: order_count
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteModel(t, dir, "marts/customer_rollup.sql", testutil.CustomerRollupSQL)
	testutil.WriteModel(t, dir, "marts/schema.yml", martsSchema)
	testutil.WriteModel(t, dir, "staging/raw_customers.sql", testutil.RawCustomersSQL)
	testutil.WriteModel(t, dir, ".hidden/secret.sql", "SELECT 1")
	testutil.WriteModel(t, dir, "target/compiled.sql", "SELECT 1")
	testutil.WriteModel(t, dir, "dbt_packages/pkg/model.sql", "SELECT 1")
	testutil.WriteModel(t, dir, "scratch/wip.sql", "SELECT 1")
	testutil.WriteModel(t, dir, "staging/scratch_orders.sql", "SELECT 1")
	testutil.WriteModel(t, dir, ".gitignore", "scratch\nscratch_*.sql\n")
	return dir
}

func names(units []core.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Name
	}
	return out
}

func TestLoad_DiscoversModels(t *testing.T) {
	dir := writeProject(t)

	p, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"customer_rollup", "raw_customers", "warehouse_summary"}, names(p.Units()))
	assert.Empty(t, p.Warnings)
}

func TestLoad_AttachesDeclarations(t *testing.T) {
	dir := writeProject(t)

	p, err := Load(dir)
	require.NoError(t, err)

	u, ok := p.Unit("customer_rollup")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(p.Root, "marts", "customer_rollup.sql"), u.Path)
	assert.Equal(t, []string{"customer_id", "total_amount"}, u.DeclaredColumns)
	require.NotNil(t, u.DeclaredRollup)
	assert.True(t, *u.DeclaredRollup)

	raw, ok := p.Unit("raw_customers")
	require.True(t, ok)
	assert.Nil(t, raw.DeclaredRollup)
	assert.Empty(t, raw.DeclaredColumns)
}

func TestLoad_DeclaredOnlyModel(t *testing.T) {
	dir := writeProject(t)

	p, err := Load(dir)
	require.NoError(t, err)

	u, ok := p.Unit("warehouse_summary")
	require.True(t, ok)
	assert.Empty(t, u.Path)
	assert.Equal(t, []string{"total_cost", "order_count"}, u.DeclaredColumns)
	require.NotNil(t, u.DeclaredRollup)
	assert.True(t, *u.DeclaredRollup)
}

func TestLoad_MalformedSchemaIsWarning(t *testing.T) {
	dir := writeProject(t)
	testutil.WriteModel(t, dir, "broken.yml", "models: [\n  - name: x\n")

	p, err := Load(dir)
	require.NoError(t, err)

	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "broken.yml")
	assert.Len(t, p.Units(), 3)
}

func TestLoad_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteModel(t, dir, "a/orders.sql", "SELECT 1 AS x FROM t")
	testutil.WriteModel(t, dir, "b/orders.sql", "SELECT 2 AS x FROM t")
	testutil.WriteModel(t, dir, "one.yml", "models:\n  - name: orders\n    columns:\n      - name: x\n")
	testutil.WriteModel(t, dir, "two.yml", "models:\n  - name: orders\n    columns:\n      - name: y\n")

	p, err := Load(dir)
	require.NoError(t, err)

	u, ok := p.Unit("orders")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(p.Root, "a", "orders.sql"), u.Path)
	assert.Equal(t, []string{"x"}, u.DeclaredColumns)
	assert.Len(t, p.Warnings, 2)
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_NotADirectory(t *testing.T) {
	path := testutil.WriteModel(t, t.TempDir(), "model.sql", "SELECT 1")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestParseSchema(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantNames  []string
		wantRollup []*bool
		wantErr    string
	}{
		{
			name:       "meta rollup",
			content:    "models:\n  - name: a\n    meta: {rollup: false}\n",
			wantNames:  []string{"a"},
			wantRollup: []*bool{core.BoolPtr(false)},
		},
		{
			name:       "config meta wins",
			content:    "models:\n  - name: a\n    meta: {rollup: false}\n    config: {meta: {rollup: true}}\n",
			wantNames:  []string{"a"},
			wantRollup: []*bool{core.BoolPtr(true)},
		},
		{
			name:       "no rollup flag",
			content:    "models:\n  - name: a\n",
			wantNames:  []string{"a"},
			wantRollup: []*bool{nil},
		},
		{
			name:       "sources only",
			content:    "version: 2\nsources:\n  - name: raw\n",
			wantNames:  []string{},
			wantRollup: []*bool{},
		},
		{
			name:    "missing name",
			content: "models:\n  - columns: [{name: a}]\n",
			wantErr: "models[0] has no name",
		},
		{
			name:    "wrong type",
			content: "models: 3\n",
			wantErr: "schema.yml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decls, err := parseSchema("schema.yml", []byte(tt.content))
			if tt.wantErr != "" {
				require.Error(t, err)
				var perr *SchemaParseError
				require.ErrorAs(t, err, &perr)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			gotNames := make([]string, 0, len(decls))
			gotRollup := make([]*bool, 0, len(decls))
			for _, d := range decls {
				gotNames = append(gotNames, d.Name)
				gotRollup = append(gotRollup, d.Rollup)
			}
			assert.Equal(t, tt.wantNames, gotNames)
			assert.Equal(t, tt.wantRollup, gotRollup)
		})
	}
}

func TestSchemaParseError(t *testing.T) {
	assert.Equal(t, "a.yml:3: bad", (&SchemaParseError{File: "a.yml", Line: 3, Message: "bad"}).Error())
	assert.Equal(t, "a.yml: bad", (&SchemaParseError{File: "a.yml", Message: "bad"}).Error())
}
