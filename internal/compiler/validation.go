package compiler

import (
	"fmt"
	"strings"

	"github.com/pgdomain/pgdomain/internal/spec"
	"github.com/pgdomain/pgdomain/internal/util"
)

// compileValidation synthesizes the validation procedure and its BEFORE
// INSERT trigger for a table declaring an invalid-records policy. The
// procedure checks, in this order: primary-key completeness, foreign-key
// existence, primary-key duplication. The first failing check runs the
// configured action and suppresses the insert.
//
// Checks are only emitted where they apply: the key checks need a primary
// key, the foreign-key check needs a parent. A table where no check applies
// gets no trigger at all.
func (d *Domain) compileValidation(b *ddlBuilder, t *spec.Table, table string, columns []spec.Column, parent *node, spillover string) error {
	action := t.Invalid.Action
	if action != spec.ActionInsert && action != spec.ActionIgnore {
		return fmt.Errorf("%w: invalid action on validation for table %s: %s",
			spec.ErrInvalidSpec, table, action)
	}

	audit := func(reason string) string { return "" }
	if action == spec.ActionInsert {
		// Rejected rows are copied verbatim: every non-generated column value
		// plus the reason literal. Generated columns recompute on insert and
		// must not be supplied.
		var names, values []string
		for _, c := range columns {
			if c.IsGenerated() {
				continue
			}
			names = append(names, util.QuoteIdentifier(c.Name))
			values = append(values, "NEW."+util.QuoteIdentifier(c.Name))
		}
		audit = func(reason string) string {
			return fmt.Sprintf("INSERT INTO %s\n                (%s, REASON)\n                VALUES (%s, '%s');",
				spillover, strings.Join(names, ","), strings.Join(values, ","), reason)
		}
	}

	var body strings.Builder
	if len(t.PrimaryKey) > 0 {
		nulls := make([]string, len(t.PrimaryKey))
		for i, c := range t.PrimaryKey {
			nulls[i] = fmt.Sprintf("NEW.%s IS NULL", util.QuoteIdentifier(c))
		}
		writeCheck(&body,
			fmt.Sprintf("(%s)", strings.Join(nulls, "\n            OR ")),
			audit("PRIMARY KEY"))
	}
	if parent != nil {
		writeCheck(&body,
			fmt.Sprintf("NOT EXISTS (\n            SELECT FROM %s\n            WHERE %s\n        )",
				d.FQN(parent.table.Name), matchCondition(parent.table.PrimaryKey)),
			audit("FOREIGN KEY"))
	}
	if len(t.PrimaryKey) > 0 {
		writeCheck(&body,
			fmt.Sprintf("EXISTS (\n            SELECT FROM %s\n            WHERE %s\n        )",
				table, matchCondition(t.PrimaryKey)),
			audit("DUPLICATE"))
	}
	if body.Len() == 0 {
		return nil
	}

	function := util.Qualify(d.Schema, "validate_"+t.Name)
	tag := t.Name + "_validation"
	if d.Schema != "" {
		tag = d.Schema + "_" + tag
	}
	b.ddl = append(b.ddl, Statement{
		Kind:  StatementFunction,
		Table: t.Name,
		SQL: fmt.Sprintf("CREATE OR REPLACE FUNCTION %s() RETURNS TRIGGER AS $%s$\n    BEGIN\n%s        RETURN NEW;\n    END;\n$%s$ LANGUAGE plpgsql;",
			function, tag, body.String(), tag),
	})
	b.ddl = append(b.ddl, Statement{
		Kind:  StatementTrigger,
		Table: t.Name,
		SQL: fmt.Sprintf("CREATE TRIGGER %s BEFORE INSERT ON %s\n    FOR EACH ROW EXECUTE FUNCTION %s();",
			tag, table, function),
	})
	return nil
}

// matchCondition equates each key column of the inspected row with the NEW
// row's value.
func matchCondition(columns []string) string {
	conditions := make([]string, len(columns))
	for i, c := range columns {
		q := util.QuoteIdentifier(c)
		conditions[i] = fmt.Sprintf("NEW.%s = %s", q, q)
	}
	return strings.Join(conditions, "\n                AND ")
}

// writeCheck appends one IF block: when the condition holds, run the action
// (if any) and suppress the insert.
func writeCheck(body *strings.Builder, condition, action string) {
	fmt.Fprintf(body, "        IF %s THEN\n", condition)
	if action != "" {
		fmt.Fprintf(body, "            %s\n", action)
	}
	body.WriteString("            RETURN NULL;\n")
	body.WriteString("        END IF;\n")
}
