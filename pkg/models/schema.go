package models

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaDescriptor is the hand-written description of the sales database that every
// generation prompt carries. It is not discovered from the store; keep it in sync with
// the migrations.
type SchemaDescriptor struct {
	Tables []TableDescriptor `yaml:"tables" json:"tables"`
}

// TableDescriptor describes one table.
type TableDescriptor struct {
	Name    string             `yaml:"name" json:"name"`
	Columns []ColumnDescriptor `yaml:"columns" json:"columns"`
}

// ColumnDescriptor describes one column. References names the table a foreign key points to.
type ColumnDescriptor struct {
	Name       string `yaml:"name" json:"name"`
	Type       string `yaml:"type,omitempty" json:"type,omitempty"`
	PrimaryKey bool   `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	References string `yaml:"references,omitempty" json:"references,omitempty"`
}

func pk(name string) ColumnDescriptor { return ColumnDescriptor{Name: name, Type: "int", PrimaryKey: true} }

func col(name, typ string) ColumnDescriptor { return ColumnDescriptor{Name: name, Type: typ} }

func fk(name, table string) ColumnDescriptor {
	return ColumnDescriptor{Name: name, Type: "int", References: table}
}

// DefaultSchemaDescriptor returns the eight sales tables created by migration 000001.
func DefaultSchemaDescriptor() *SchemaDescriptor {
	return &SchemaDescriptor{Tables: []TableDescriptor{
		{Name: "categorias", Columns: []ColumnDescriptor{pk("id_categoria"), col("nombre", "varchar")}},
		{Name: "tipos_usuario", Columns: []ColumnDescriptor{pk("id_tipo_usuario"), col("nombre", "varchar")}},
		{Name: "tipos_vendedor", Columns: []ColumnDescriptor{pk("id_tipo_vendedor"), col("nombre", "varchar")}},
		{Name: "estados_venta", Columns: []ColumnDescriptor{pk("id_estado"), col("nombre", "varchar")}},
		{Name: "productos", Columns: []ColumnDescriptor{
			pk("id_producto"), col("nombre", "varchar"), col("precio", "numeric"), col("stock", "int"),
			fk("id_categoria", "categorias"),
		}},
		{Name: "usuarios", Columns: []ColumnDescriptor{
			pk("id_usuario"), col("nombre", "varchar"), col("email", "varchar"),
			fk("id_tipo_usuario", "tipos_usuario"),
		}},
		{Name: "vendedores", Columns: []ColumnDescriptor{
			pk("id_vendedor"), col("nombre", "varchar"), col("region", "varchar"),
			fk("id_tipo_vendedor", "tipos_vendedor"),
		}},
		{Name: "ventas", Columns: []ColumnDescriptor{
			pk("id_venta"),
			fk("id_usuario", "usuarios"), fk("id_vendedor", "vendedores"),
			fk("id_producto", "productos"), fk("id_estado", "estados_venta"),
			col("total", "numeric"), col("cantidad", "int"), col("fecha_venta", "timestamp"),
		}},
	}}
}

// LoadSchemaDescriptor reads a descriptor from a YAML file.
func LoadSchemaDescriptor(path string) (*SchemaDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema descriptor: %w", err)
	}

	var desc SchemaDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse schema descriptor %s: %w", path, err)
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("schema descriptor %s: %w", path, err)
	}
	return &desc, nil
}

// Validate checks that every table and column is named and that foreign keys point at
// described tables.
func (d *SchemaDescriptor) Validate() error {
	if len(d.Tables) == 0 {
		return fmt.Errorf("no tables described")
	}

	known := make(map[string]bool, len(d.Tables))
	for _, t := range d.Tables {
		if t.Name == "" {
			return fmt.Errorf("table without name")
		}
		known[t.Name] = true
	}

	for _, t := range d.Tables {
		if len(t.Columns) == 0 {
			return fmt.Errorf("table %s has no columns", t.Name)
		}
		for _, c := range t.Columns {
			if c.Name == "" {
				return fmt.Errorf("table %s has a column without name", t.Name)
			}
			if c.References != "" && !known[c.References] {
				return fmt.Errorf("%s.%s references unknown table %s", t.Name, c.Name, c.References)
			}
		}
	}
	return nil
}

// TableNames returns the described table names in order.
func (d *SchemaDescriptor) TableNames() []string {
	names := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		names[i] = t.Name
	}
	return names
}

// Render formats the descriptor as one line per table, the form injected into prompts:
//
//	- productos: id_producto (PK), nombre (varchar), id_categoria (FK -> categorias)
func (d *SchemaDescriptor) Render() string {
	var b strings.Builder
	for _, t := range d.Tables {
		b.WriteString("- ")
		b.WriteString(t.Name)
		b.WriteString(": ")
		for i, c := range t.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			switch {
			case c.PrimaryKey:
				b.WriteString(" (PK)")
			case c.References != "":
				b.WriteString(" (FK -> ")
				b.WriteString(c.References)
				b.WriteString(")")
			case c.Type != "":
				b.WriteString(" (")
				b.WriteString(c.Type)
				b.WriteString(")")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
