package prompts

import (
	"fmt"
	"strings"

	"github.com/asistentebi/bi-engine/pkg/llm"
	"github.com/asistentebi/bi-engine/pkg/models"
	"github.com/asistentebi/bi-engine/pkg/sql"
)

const (
	// GeneralRowLimit caps every generated query.
	GeneralRowLimit = 100
	// SuperlativeRowLimit caps "best/top" questions.
	SuperlativeRowLimit = 10
)

// GenerationContext is everything one request feeds the model. Build a new one per request.
type GenerationContext struct {
	Dialect      string // "postgres" or "mssql"
	Schema       *models.SchemaDescriptor
	UsableTables []string
	Knowledge    string
	ToolCalling  bool
	Question     string
}

func dialectName(dialect string) string {
	if dialect == "mssql" {
		return "SQL Server (T-SQL)"
	}
	return "PostgreSQL"
}

func limitClause(dialect string, n int) string {
	if dialect == "mssql" {
		return fmt.Sprintf("SELECT TOP %d", n)
	}
	return fmt.Sprintf("LIMIT %d", n)
}

// SystemPrompt renders the instruction block: role, schema, shaping rules, few-shot
// examples, optional reference document.
func (g *GenerationContext) SystemPrompt() string {
	var b strings.Builder

	b.WriteString("Actúa como un Motor de Consulta de Datos para un sistema de BI.\n")
	b.WriteString("Tu única responsabilidad es traducir preguntas de lenguaje natural a consultas SQL ")
	b.WriteString(dialectName(g.Dialect))
	b.WriteString(" válidas.\n\n")

	if len(g.UsableTables) > 0 {
		fmt.Fprintf(&b, "Tienes acceso a las siguientes tablas: %s.\n\n", strings.Join(g.UsableTables, ", "))
	}

	fmt.Fprintf(&b, "ESQUEMA EXACTO DE LA BASE DE DATOS (%s):\n\n", dialectName(g.Dialect))
	b.WriteString(g.Schema.Render())
	b.WriteString("\n")

	b.WriteString("REGLAS ESTRICTAS PARA GENERAR SQL:\n")
	b.WriteString("1. SIEMPRE genera consultas que devuelvan AL MENOS 2 columnas: una columna de etiqueta/categoría y una columna numérica.\n")
	b.WriteString("2. NUNCA devuelvas solo un número. Agrupa por alguna dimensión relevante.\n")
	b.WriteString("3. SIEMPRE usa JOINs para obtener nombres legibles. Las tablas de hechos solo tienen IDs (id_vendedor, id_producto, etc.).\n")
	b.WriteString("4. IMPORTANTE: La columna se llama 'nombre' en TODAS las tablas, NO 'nombre_categoria' ni 'nombre_producto'.\n")
	b.WriteString("5. Siempre dale alias legibles a los resultados (ej: AS categoria, AS total_ventas).\n")
	fmt.Fprintf(&b, "6. Limita los resultados a %d filas máximo con %s.\n",
		GeneralRowLimit, limitClause(g.Dialect, GeneralRowLimit))
	fmt.Fprintf(&b, "7. Para preguntas de \"el mejor\", \"los mejores\", \"top\" o \"el que más\", ordena de forma descendente y limita a %d filas con %s.\n",
		SuperlativeRowLimit, limitClause(g.Dialect, SuperlativeRowLimit))
	fmt.Fprintf(&b, "8. Si la pregunta no tiene sentido, es ofensiva o no está relacionada con estos datos, responde únicamente %s y no generes SQL.\n",
		sql.RejectionSentinel)
	b.WriteString("9. Opcionalmente indica el gráfico más adecuado con una marca [CHART:bar], [CHART:pie], [CHART:line], [CHART:point] o [CHART:table].\n")
	if g.ToolCalling {
		fmt.Fprintf(&b, "10. Usa la herramienta '%s' para ejecutar la consulta.\n", llm.QueryDatabaseTool)
	} else {
		b.WriteString("10. Responde con una breve explicación amigable seguida de la consulta en un bloque ```sql ... ```.\n")
	}
	b.WriteString("\n")

	b.WriteString("EJEMPLOS DE CONSULTAS CORRECTAS:\n")
	for _, ex := range g.examples() {
		b.WriteString("- ")
		b.WriteString(ex)
		b.WriteString("\n")
	}

	if g.Knowledge != "" {
		b.WriteString("\nDOCUMENTO DE REFERENCIA (úsalo para responder preguntas que no son numéricas):\n")
		b.WriteString(g.Knowledge)
		b.WriteString("\n")
	}

	return b.String()
}

func (g *GenerationContext) examples() []string {
	if g.Dialect == "mssql" {
		return []string{
			"Rendimiento de vendedores: SELECT TOP 100 vd.nombre AS vendedor, vd.region AS sector, SUM(vt.total) AS total_ventas, COUNT(vt.id_venta) AS num_ventas FROM ventas vt JOIN vendedores vd ON vt.id_vendedor = vd.id_vendedor GROUP BY vd.nombre, vd.region ORDER BY total_ventas DESC;",
			"Ventas por categoría: SELECT TOP 100 c.nombre AS categoria, SUM(vt.total) AS total_ventas FROM ventas vt JOIN productos p ON vt.id_producto = p.id_producto JOIN categorias c ON p.id_categoria = c.id_categoria GROUP BY c.nombre ORDER BY total_ventas DESC;",
			"Ventas por región: SELECT TOP 100 vd.region AS region, SUM(vt.total) AS total_ventas FROM ventas vt JOIN vendedores vd ON vt.id_vendedor = vd.id_vendedor GROUP BY vd.region ORDER BY total_ventas DESC;",
		}
	}
	return []string{
		"Rendimiento de vendedores: SELECT vd.nombre AS vendedor, vd.region AS sector, SUM(vt.total) AS total_ventas, COUNT(vt.id_venta) AS num_ventas FROM ventas vt JOIN vendedores vd ON vt.id_vendedor = vd.id_vendedor GROUP BY vd.nombre, vd.region ORDER BY total_ventas DESC LIMIT 100;",
		"Ventas por categoría: SELECT c.nombre AS categoria, SUM(vt.total) AS total_ventas FROM ventas vt JOIN productos p ON vt.id_producto = p.id_producto JOIN categorias c ON p.id_categoria = c.id_categoria GROUP BY c.nombre ORDER BY total_ventas DESC LIMIT 100;",
		"Ventas por región: SELECT vd.region AS region, SUM(vt.total) AS total_ventas FROM ventas vt JOIN vendedores vd ON vt.id_vendedor = vd.id_vendedor GROUP BY vd.region ORDER BY total_ventas DESC LIMIT 100;",
	}
}

// Messages returns the first-turn conversation: system instructions then the question.
func (g *GenerationContext) Messages() []llm.Message {
	return []llm.Message{
		llm.SystemMessage(g.SystemPrompt()),
		llm.UserMessage(g.Question),
	}
}

// RetryMessages extends the first-turn conversation with the model's previous answer and
// a correction request carrying the failed SQL and the store's error text.
func RetryMessages(first []llm.Message, priorAnswer, failedSQL, execErr string) []llm.Message {
	prior := strings.TrimSpace(priorAnswer)
	if prior == "" {
		prior = "```sql\n" + failedSQL + "\n```"
	}

	msgs := make([]llm.Message, 0, len(first)+2)
	msgs = append(msgs, first...)
	msgs = append(msgs,
		llm.AssistantMessage(prior),
		llm.UserMessage(RetryInstruction(failedSQL, execErr)),
	)
	return msgs
}

// RetryInstruction is the user turn sent after a failed execution.
func RetryInstruction(failedSQL, execErr string) string {
	return fmt.Sprintf("La consulta SQL falló con este error: %s\nConsulta ejecutada:\n```sql\n%s\n```\nPor favor corrige la consulta SQL y vuelve a intentar.",
		execErr, failedSQL)
}
