package db

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jinzhu/inflection"
	"github.com/yaacov/tree-search-language/pkg/tsl"
	"gorm.io/gorm"

	"github.com/infractl/infractl/pkg/errors"
)

// Metadata key pattern: lowercase letters, digits, and underscores only, to
// keep interpolated JSONB keys out of SQL injection territory.
var metadataKeyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

func validateMetadataKey(key string) *errors.ServiceError {
	if key == "" {
		return errors.BadRequest("metadata key cannot be empty")
	}
	if !metadataKeyPattern.MatchString(key) {
		return errors.BadRequest("metadata key '%s' is invalid: must contain only lowercase letters, digits, and underscores", key)
	}
	return nil
}

// getField gets the sql field associated with a name.
func getField(name string, disallowedFields map[string]string) (field string, err *errors.ServiceError) {
	// We want to accept names with trailing and leading spaces
	trimmedName := strings.Trim(name, " ")

	// Map user-friendly metadata.xxx syntax to a JSONB query: metadata->>'xxx'
	if strings.HasPrefix(trimmedName, "metadata.") {
		key := strings.TrimPrefix(trimmedName, "metadata.")
		if validationErr := validateMetadataKey(key); validationErr != nil {
			err = validationErr
			return
		}
		field = fmt.Sprintf("metadata->>'%s'", key)
		return
	}

	fieldParts := strings.Split(trimmedName, ".")
	if len(fieldParts) > 1 {
		err = errors.BadRequest("%s is not a valid field name", name)
		return
	}

	if _, disallowed := disallowedFields[trimmedName]; disallowed {
		err = errors.BadRequest("%s is not a valid field name", name)
		return
	}
	field = trimmedName
	return
}

// Condition type pattern: PascalCase condition types (e.g. Ready, Degraded).
var conditionTypePattern = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)

var validConditionStatuses = map[string]bool{
	"True":    true,
	"False":   true,
	"Unknown": true,
}

func startsWithConditions(s string) bool {
	return strings.HasPrefix(s, "conditions.")
}

// hasCondition returns true if node has a conditions.<Type> identifier on the
// left hand side.
func hasCondition(n tsl.Node) bool {
	l, ok := n.Left.(tsl.Node)
	if !ok {
		return false
	}
	leftStr, ok := l.Left.(string)
	if !ok || l.Func != tsl.IdentOp || !startsWithConditions(leftStr) {
		return false
	}
	return true
}

// conditionsNodeConverter handles conditions.<ConditionType>='<Status>' queries.
// Transforms: conditions.Ready='True' ->
//
//	jsonb_path_query_first(conditions, '$[*] ? (@.type == "Ready")') ->> 'status' = 'True'
//
// The TSL library has no JSONB operators, so condition terms are translated
// directly to squirrel expressions.
func conditionsNodeConverter(n tsl.Node) (sq.Sqlizer, *errors.ServiceError) {
	l, ok := n.Left.(tsl.Node)
	if !ok {
		return nil, errors.BadRequest("invalid condition query structure")
	}

	leftStr, ok := l.Left.(string)
	if !ok {
		return nil, errors.BadRequest("expected string for left side of condition")
	}

	parts := strings.Split(leftStr, ".")
	if len(parts) != 2 || parts[0] != "conditions" {
		return nil, errors.BadRequest("invalid condition field path: %s", leftStr)
	}
	conditionType := parts[1]

	if !conditionTypePattern.MatchString(conditionType) {
		return nil, errors.BadRequest("condition type '%s' is invalid: must be PascalCase (e.g. Ready, Degraded)", conditionType)
	}

	r, ok := n.Right.(tsl.Node)
	if !ok {
		return nil, errors.BadRequest("invalid condition query structure: missing right side")
	}
	rightStr, ok := r.Left.(string)
	if !ok {
		return nil, errors.BadRequest("expected string for right side of condition")
	}
	if !validConditionStatuses[rightStr] {
		return nil, errors.BadRequest("condition status '%s' is invalid: must be True, False, or Unknown", rightStr)
	}

	// Only equality is supported for condition terms.
	if n.Func != tsl.EqOp {
		return nil, errors.BadRequest("only equality operator (=) is supported for condition queries")
	}

	jsonPath := fmt.Sprintf(`$[*] ? (@.type == "%s")`, conditionType)
	return sq.Expr("jsonb_path_query_first(conditions, ?::jsonpath) ->> 'status' = ?", jsonPath, rightStr), nil
}

// ExtractConditionQueries walks the TSL tree and pulls out condition terms,
// returning the modified tree (condition nodes replaced with an always-true
// placeholder) and the extracted expressions.
func ExtractConditionQueries(n tsl.Node) (tsl.Node, []sq.Sqlizer, *errors.ServiceError) {
	var conditions []sq.Sqlizer
	modifiedTree, err := extractConditionsWalk(n, &conditions)
	return modifiedTree, conditions, err
}

func extractConditionsWalk(n tsl.Node, conditions *[]sq.Sqlizer) (tsl.Node, *errors.ServiceError) {
	if hasCondition(n) {
		expr, err := conditionsNodeConverter(n)
		if err != nil {
			return n, err
		}
		*conditions = append(*conditions, expr)

		// Placeholder that always evaluates to true so the rest of the tree
		// is processed normally.
		return tsl.Node{
			Func:  tsl.EqOp,
			Left:  tsl.Node{Func: tsl.NumberOp, Left: float64(1)},
			Right: tsl.Node{Func: tsl.NumberOp, Left: float64(1)},
		}, nil
	}

	var newLeft, newRight interface{}

	if n.Left != nil {
		switch v := n.Left.(type) {
		case tsl.Node:
			newLeftNode, err := extractConditionsWalk(v, conditions)
			if err != nil {
				return n, err
			}
			newLeft = newLeftNode
		default:
			newLeft = n.Left
		}
	}

	if n.Right != nil {
		switch v := n.Right.(type) {
		case tsl.Node:
			newRightNode, err := extractConditionsWalk(v, conditions)
			if err != nil {
				return n, err
			}
			newRight = newRightNode
		case []tsl.Node:
			var newRightNodes []tsl.Node
			for _, rightNode := range v {
				newRightNode, err := extractConditionsWalk(rightNode, conditions)
				if err != nil {
					return n, err
				}
				newRightNodes = append(newRightNodes, newRightNode)
			}
			newRight = newRightNodes
		default:
			newRight = n.Right
		}
	}

	return tsl.Node{
		Func:  n.Func,
		Left:  newLeft,
		Right: newRight,
	}, nil
}

// FieldNameWalk walks the filter tree and checks/replaces the search field
// names:
// a. the field name is valid.
// b. replace the field name with the SQL column name.
func FieldNameWalk(
	n tsl.Node,
	disallowedFields map[string]string) (newNode tsl.Node, err *errors.ServiceError) {

	var field string
	var l, r tsl.Node

	switch n.Func {
	case tsl.IdentOp:
		// If this is an identifier, check the field name is a string.
		userFieldName, ok := n.Left.(string)
		if !ok {
			err = errors.BadRequest("Identifier name must be a string")
			return
		}

		field, err = getField(userFieldName, disallowedFields)
		if err != nil {
			return
		}

		// Replace identifier name.
		newNode = tsl.Node{Func: tsl.IdentOp, Left: field}
	case tsl.StringOp, tsl.NumberOp:
		// These are leafs, just return.
		newNode = tsl.Node{Func: n.Func, Left: n.Left}
	default:
		// o/w continue walking the tree.
		if n.Left != nil {
			leftNode, ok := n.Left.(tsl.Node)
			if !ok {
				err = errors.BadRequest("invalid node structure")
				return
			}
			l, err = FieldNameWalk(leftNode, disallowedFields)
			if err != nil {
				return
			}
		}

		// Add right child(ren) if exist.
		if n.Right != nil {
			switch v := n.Right.(type) {
			case tsl.Node:
				r, err = FieldNameWalk(v, disallowedFields)
				if err != nil {
					return
				}

				newNode = tsl.Node{Func: n.Func, Left: l, Right: r}
			case []tsl.Node:
				// Some TSL operators have multiple RHS arguments, for example
				// `IN` and `BETWEEN`. Loop over the list and add all nodes.
				var rr []tsl.Node
				for _, e := range v {
					r, err = FieldNameWalk(e, disallowedFields)
					if err != nil {
						return
					}
					rr = append(rr, r)
				}

				newNode = tsl.Node{Func: n.Func, Left: l, Right: rr}
			default:
				err = errors.BadRequest("unsupported right hand side type in search query")
			}
		} else {
			// `n.Right` is nil. This is a legit type of node; ignore the right
			// hand side and continue walking the tree.
			newNode = tsl.Node{Func: n.Func, Left: l}
		}
	}

	return
}

// cleanOrderBy takes the orderBy arg and cleans it.
func cleanOrderBy(userArg string, disallowedFields map[string]string) (orderBy string, err *errors.ServiceError) {
	var orderField string

	// We want to accept user params with trailing and leading spaces
	trimmedName := strings.Trim(userArg, " ")

	// Each OrderBy can be a "<field-name>" or a "<field-name> asc|desc"
	order := strings.Split(trimmedName, " ")
	direction := "none valid"

	if len(order) == 1 {
		orderField, err = getField(order[0], disallowedFields)
		direction = "asc"
	} else if len(order) == 2 {
		orderField, err = getField(order[0], disallowedFields)
		direction = order[1]
	}
	if err != nil || (direction != "asc" && direction != "desc") {
		err = errors.BadRequest("bad order value '%s'", userArg)
		return
	}

	orderBy = fmt.Sprintf("%s %s", orderField, direction)
	return
}

// ArgsToOrderBy returns a cleaned orderBy list.
func ArgsToOrderBy(
	orderByArgs []string,
	disallowedFields map[string]string) (orderBy []string, err *errors.ServiceError) {

	var order string
	if len(orderByArgs) != 0 {
		orderBy = []string{}
		for _, o := range orderByArgs {
			order, err = cleanOrderBy(o, disallowedFields)
			if err != nil {
				return
			}
			orderBy = append(orderBy, order)
		}
	}
	return
}

// GetTableName resolves the table a gorm statement's model maps to.
func GetTableName(g2 *gorm.DB) string {
	if g2.Statement.Parse(g2.Statement.Model) != nil {
		return "xxx"
	}
	if g2.Statement.Schema != nil {
		return g2.Statement.Schema.Table
	}
	name := reflect.TypeOf(g2.Statement.Model).Elem().Name()
	return inflection.Plural(strings.ToLower(name))
}
