package spec

import (
	"gopkg.in/yaml.v3"
)

// Marshal renders a domain back into specification YAML, preserving column
// and child order. Only the entries the loader understands are emitted, so a
// marshalled domain always parses back.
func Marshal(domain *DomainSpec) ([]byte, error) {
	body := mapping()
	if domain.Schema != "" {
		appendPair(body, "schema", scalar(domain.Schema))
	}
	if domain.IndexPolicy != "" {
		appendPair(body, "index", scalar(string(domain.IndexPolicy)))
	}
	tables := mapping()
	for _, t := range domain.Tables {
		appendPair(tables, t.Name, tableNode(t))
	}
	appendPair(body, "tables", tables)

	root := mapping()
	appendPair(root, domain.Name, body)
	return yaml.Marshal(root)
}

func tableNode(t *Table) *yaml.Node {
	node := mapping()
	columns := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range t.Columns {
		columns.Content = append(columns.Content, columnNode(c))
	}
	appendPair(node, "columns", columns)
	if len(t.PrimaryKey) > 0 {
		pk := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, name := range t.PrimaryKey {
			pk.Content = append(pk.Content, scalar(name))
		}
		appendPair(node, "primary_key", pk)
	}
	if t.Invalid != nil {
		appendPair(node, "invalid.records", invalidNode(t.Invalid))
	}
	if len(t.Children) > 0 {
		children := mapping()
		for _, c := range t.Children {
			appendPair(children, c.Name, tableNode(c))
		}
		appendPair(node, "children", children)
	}
	return node
}

func columnNode(c Column) *yaml.Node {
	if c.Type == "" && c.Index == nil && c.Source == nil {
		return scalar(c.Name)
	}
	attrs := mapping()
	if c.Type != "" {
		appendPair(attrs, "type", scalar(c.Type))
	}
	if c.Index != nil {
		idx := mapping()
		if c.Index.Name != "" {
			appendPair(idx, "name", scalar(c.Index.Name))
		}
		if c.Index.Using != "" {
			appendPair(idx, "using", scalar(c.Index.Using))
		}
		appendPair(attrs, "index", idx)
	}
	if c.Source != nil {
		src := mapping()
		appendPair(src, "type", scalar(c.Source.Type))
		if c.Source.Code != "" {
			appendPair(src, "code", scalar(c.Source.Code))
		}
		appendPair(attrs, "source", src)
	}
	entry := mapping()
	appendPair(entry, c.Name, attrs)
	return entry
}

func invalidNode(p *InvalidPolicy) *yaml.Node {
	node := mapping()
	appendPair(node, "action", scalar(string(p.Action)))
	if p.TargetSchema != "" || p.TargetTable != "" {
		target := mapping()
		if p.TargetSchema != "" {
			appendPair(target, "schema", scalar(p.TargetSchema))
		}
		if p.TargetTable != "" {
			appendPair(target, "table", scalar(p.TargetTable))
		}
		appendPair(node, "target", target)
	}
	return node
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalar(key), value)
}
