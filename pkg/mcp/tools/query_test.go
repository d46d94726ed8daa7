package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asistentebi/bi-engine/pkg/services"
)

type fakeExecutor struct {
	out  string
	seen []string
}

func (f *fakeExecutor) ExecuteTool(_ context.Context, sqlQuery string) string {
	f.seen = append(f.seen, sqlQuery)
	return f.out
}

func TestQueryDatabaseTool(t *testing.T) {
	t.Run("listed", func(t *testing.T) {
		s := newTestServer()
		RegisterQueryDatabaseTool(s, &fakeExecutor{})

		assert.Contains(t, listTools(t, s), "query_database")
	})

	t.Run("returns rows", func(t *testing.T) {
		s := newTestServer()
		exec := &fakeExecutor{out: `[{"region":"Norte","total":1500.5}]`}
		RegisterQueryDatabaseTool(s, exec)

		resp := callTool(t, s, "query_database", map[string]any{"query": "  SELECT region, SUM(total) AS total FROM ventas v JOIN vendedores d ON v.id_vendedor = d.id_vendedor GROUP BY region "})

		assert.Equal(t, `[{"region":"Norte","total":1500.5}]`, resp.text(t))
		assert.False(t, resp.Result.IsError)
		assert.Equal(t, []string{"SELECT region, SUM(total) AS total FROM ventas v JOIN vendedores d ON v.id_vendedor = d.id_vendedor GROUP BY region"}, exec.seen)
	})

	t.Run("store error is stringified", func(t *testing.T) {
		s := newTestServer()
		RegisterQueryDatabaseTool(s, &fakeExecutor{out: services.ToolErrorPrefix + `relation "ventass" does not exist`})

		resp := callTool(t, s, "query_database", map[string]any{"query": "SELECT * FROM ventass"})

		assert.Equal(t, `Error ejecutando SQL: relation "ventass" does not exist`, resp.text(t))
		assert.True(t, resp.Result.IsError)
	})

	t.Run("missing query", func(t *testing.T) {
		s := newTestServer()
		exec := &fakeExecutor{}
		RegisterQueryDatabaseTool(s, exec)

		resp := callTool(t, s, "query_database", map[string]any{})

		assert.True(t, resp.Result.IsError)
		assert.Contains(t, resp.text(t), "invalid_parameters")
		assert.Empty(t, exec.seen)
	})

	t.Run("blank query", func(t *testing.T) {
		s := newTestServer()
		exec := &fakeExecutor{}
		RegisterQueryDatabaseTool(s, exec)

		resp := callTool(t, s, "query_database", map[string]any{"query": "   "})

		assert.True(t, resp.Result.IsError)
		assert.Empty(t, exec.seen)
	})
}
