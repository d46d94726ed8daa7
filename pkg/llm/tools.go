package llm

// ToolDefinition defines a tool that can be called by the LLM.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ParameterProperty defines a parameter property in JSON Schema format.
type ParameterProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// NewToolDefinition creates a new tool definition with standard JSON Schema parameters.
func NewToolDefinition(name, description string, properties map[string]ParameterProperty, required []string) ToolDefinition {
	props := make(map[string]any)
	for k, v := range properties {
		prop := map[string]any{
			"type":        v.Type,
			"description": v.Description,
		}
		if len(v.Enum) > 0 {
			prop["enum"] = v.Enum
		}
		props[k] = prop
	}

	if required == nil {
		required = []string{}
	}

	return ToolDefinition{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

const (
	// QueryDatabaseTool is the name of the single tool exposed to the model.
	QueryDatabaseTool = "query_database"
	// QueryArgument is the tool's only argument.
	QueryArgument = "query"
)

// QueryDatabaseToolDefinition describes query_database: run one SQL statement against the
// sales database and get the rows back as JSON, or an error text.
func QueryDatabaseToolDefinition() ToolDefinition {
	return NewToolDefinition(
		QueryDatabaseTool,
		"Ejecuta una consulta SQL de solo lectura sobre la base de datos de ventas y devuelve las filas en JSON. "+
			"Si la consulta falla devuelve el texto del error.",
		map[string]ParameterProperty{
			QueryArgument: {
				Type:        "string",
				Description: "Una única sentencia SQL SELECT con alias legibles y LIMIT",
			},
		},
		[]string{QueryArgument},
	)
}
