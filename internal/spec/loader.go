package spec

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a specification file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read specification: %w", err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes a specification from YAML. Decoding walks the node tree
// directly instead of unmarshalling into maps, so that column and child
// declaration order survives into the parsed structure.
func Parse(data []byte) (*Spec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse specification YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty specification", ErrInvalidSpec)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidSpec)
	}

	spec := &Spec{Globals: map[string]string{}}

	// Globals first: a domain may resolve against a global key declared
	// anywhere in the file, before or after the domain itself.
	for key, value := range pairs(root) {
		switch value.Kind {
		case yaml.ScalarNode:
			spec.Globals[key] = value.Value
		case yaml.MappingNode:
		default:
			return nil, fmt.Errorf("%w: unexpected top-level entry %q", ErrInvalidSpec, key)
		}
	}
	for key, value := range pairs(root) {
		if value.Kind != yaml.MappingNode {
			continue
		}
		domain, err := parseDomain(key, value, spec.Globals)
		if err != nil {
			return nil, err
		}
		spec.Domains = append(spec.Domains, domain)
	}
	if len(spec.Domains) == 0 {
		return nil, fmt.Errorf("%w: no domains declared", ErrInvalidSpec)
	}
	return spec, nil
}

func parseDomain(name string, node *yaml.Node, globals map[string]string) (*DomainSpec, error) {
	domain := &DomainSpec{Name: name, Values: map[string]string{}}

	// Scalar entries first: table parsing resolves $-references against them
	// and the source may declare them in any order.
	var tablesNode *yaml.Node
	rawPolicy := ""
	for key, value := range pairs(node) {
		switch {
		case key == "tables":
			if value.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: domain %s: tables must be a mapping", ErrInvalidSpec, name)
			}
			tablesNode = value
		case value.Kind == yaml.ScalarNode:
			domain.Values[key] = value.Value
			if key == "index" {
				rawPolicy = value.Value
			}
			if strings.HasPrefix(key, "schema.") {
				domain.AuxSchemas = append(domain.AuxSchemas, value.Value)
			}
		default:
			return nil, fmt.Errorf("%w: domain %s: unexpected entry %q", ErrInvalidSpec, name, key)
		}
	}

	if schema, ok := domain.Values["schema"]; ok {
		domain.Schema = schema
	} else if schema, ok := globals["schema"]; ok {
		domain.Schema = schema
	}
	policy, err := ParseIndexPolicy(rawPolicy)
	if err != nil {
		return nil, fmt.Errorf("domain %s: %w", name, err)
	}
	domain.IndexPolicy = policy

	if tablesNode == nil {
		return nil, fmt.Errorf("%w: domain %s declares no tables", ErrInvalidSpec, name)
	}
	for tname, tnode := range pairs(tablesNode) {
		table, err := parseTable(domain, tname, tnode)
		if err != nil {
			return nil, err
		}
		domain.Tables = append(domain.Tables, table)
	}
	return domain, nil
}

func parseTable(domain *DomainSpec, name string, node *yaml.Node) (*Table, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: table %s must be a mapping", ErrInvalidSpec, name)
	}
	table := &Table{Name: name}
	for key, value := range pairs(node) {
		var err error
		switch key {
		case "columns":
			err = parseColumns(table, value)
		case "primary_key":
			table.PrimaryKey, err = scalarList(value)
			if err != nil {
				err = fmt.Errorf("%w: table %s: malformed primary_key", ErrInvalidSpec, name)
			}
		case "children":
			if value.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: table %s: children must be a mapping", ErrInvalidSpec, name)
			}
			for cname, cnode := range pairs(value) {
				child, cerr := parseTable(domain, cname, cnode)
				if cerr != nil {
					return nil, cerr
				}
				table.Children = append(table.Children, child)
			}
		case "invalid.records":
			table.Invalid, err = parseInvalid(domain, name, value)
		default:
			err = fmt.Errorf("%w: table %s: unexpected entry %q", ErrInvalidSpec, name, key)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("%w: table %s declares no columns", ErrInvalidSpec, name)
	}
	return table, nil
}

func parseColumns(table *Table, node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: table %s: columns must be a sequence", ErrInvalidSpec, table.Name)
	}
	for _, entry := range node.Content {
		column, err := parseColumn(table.Name, entry)
		if err != nil {
			return err
		}
		table.Columns = append(table.Columns, column)
	}
	return nil
}

// parseColumn accepts both column entry forms: a bare name, or a single-key
// mapping of name to attributes.
func parseColumn(table string, node *yaml.Node) (Column, error) {
	if node.Kind == yaml.ScalarNode {
		return Column{Name: node.Value}, nil
	}
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return Column{}, fmt.Errorf("%w: table %s: malformed column entry", ErrInvalidSpec, table)
	}
	column := Column{Name: node.Content[0].Value}
	attrs := node.Content[1]
	if attrs.Kind != yaml.MappingNode {
		return Column{}, fmt.Errorf("%w: table %s: column %s attributes must be a mapping", ErrInvalidSpec, table, column.Name)
	}
	for key, value := range pairs(attrs) {
		switch key {
		case "type":
			column.Type = value.Value
		case "index":
			idx, err := parseIndexAttr(table, column.Name, value)
			if err != nil {
				return Column{}, err
			}
			column.Index = idx
		case "source":
			src, err := parseSource(table, column.Name, value)
			if err != nil {
				return Column{}, err
			}
			column.Source = src
		default:
			return Column{}, fmt.Errorf("%w: table %s: column %s: unexpected attribute %q", ErrInvalidSpec, table, column.Name, key)
		}
	}
	if column.IsGenerated() && column.Source.Code == "" {
		return Column{}, fmt.Errorf("%w: table %s: generated column %s must specify the compute code", ErrInvalidSpec, table, column.Name)
	}
	return column, nil
}

func parseIndexAttr(table, column string, node *yaml.Node) (*IndexAttr, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return &IndexAttr{Name: node.Value}, nil
	case yaml.MappingNode:
		attr := &IndexAttr{}
		for key, value := range pairs(node) {
			switch key {
			case "name":
				attr.Name = value.Value
			case "using":
				attr.Using = value.Value
			default:
				return nil, fmt.Errorf("%w: table %s: column %s: unexpected index attribute %q", ErrInvalidSpec, table, column, key)
			}
		}
		return attr, nil
	default:
		return nil, fmt.Errorf("%w: table %s: column %s: malformed index attribute", ErrInvalidSpec, table, column)
	}
}

func parseSource(table, column string, node *yaml.Node) (*Source, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: table %s: column %s: malformed source", ErrInvalidSpec, table, column)
	}
	src := &Source{}
	for key, value := range pairs(node) {
		switch key {
		case "type":
			src.Type = value.Value
		case "code":
			src.Code = value.Value
		default:
			return nil, fmt.Errorf("%w: table %s: column %s: unexpected source attribute %q", ErrInvalidSpec, table, column, key)
		}
	}
	return src, nil
}

func parseInvalid(domain *DomainSpec, table string, node *yaml.Node) (*InvalidPolicy, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: table %s: malformed invalid.records", ErrInvalidSpec, table)
	}
	policy := &InvalidPolicy{}
	var target *yaml.Node
	for key, value := range pairs(node) {
		switch key {
		case "action":
			switch Action(strings.ToLower(value.Value)) {
			case ActionInsert:
				policy.Action = ActionInsert
			case ActionIgnore:
				policy.Action = ActionIgnore
			default:
				return nil, fmt.Errorf("%w: table %s: invalid action on validation: %s", ErrInvalidSpec, table, value.Value)
			}
		case "target":
			target = value
		default:
			return nil, fmt.Errorf("%w: table %s: unexpected invalid.records entry %q", ErrInvalidSpec, table, key)
		}
	}
	if policy.Action == "" {
		return nil, fmt.Errorf("%w: table %s: invalid.records must declare an action", ErrInvalidSpec, table)
	}
	if target != nil {
		if target.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: table %s: malformed invalid.records target", ErrInvalidSpec, table)
		}
		for key, value := range pairs(target) {
			resolved, err := ParseRef(value.Value).Resolve(domain.Values)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", table, err)
			}
			switch key {
			case "schema":
				policy.TargetSchema = resolved
			case "table":
				policy.TargetTable = resolved
			default:
				return nil, fmt.Errorf("%w: table %s: unexpected target entry %q", ErrInvalidSpec, table, key)
			}
		}
	}
	return policy, nil
}

// pairs iterates the key/value entries of a mapping node in document order.
func pairs(node *yaml.Node) func(yield func(string, *yaml.Node) bool) {
	return func(yield func(string, *yaml.Node) bool) {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if !yield(node.Content[i].Value, node.Content[i+1]) {
				return
			}
		}
	}
}

func scalarList(node *yaml.Node) ([]string, error) {
	if node.Kind == yaml.ScalarNode {
		return []string{node.Value}, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a sequence")
	}
	values := make([]string, 0, len(node.Content))
	for _, entry := range node.Content {
		if entry.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("expected scalar entries")
		}
		values = append(values, entry.Value)
	}
	return values, nil
}
