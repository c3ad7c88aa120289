package ddbstore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// The local store understands the existence checks used for conditional
// writes: attribute_exists and attribute_not_exists, joined by AND.
var (
	conditionSplit  = regexp.MustCompile(`(?i)\s+AND\s+`)
	conditionClause = regexp.MustCompile(`^\(?\s*(attribute_exists|attribute_not_exists)\s*\(\s*([#\w.]+)\s*\)\s*\)?$`)
)

// evalCondition reports whether item satisfies expr. A nil item stands for
// an item that does not exist.
func evalCondition(expr string, names map[string]string, item map[string]types.AttributeValue) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	for _, clause := range conditionSplit.Split(expr, -1) {
		m := conditionClause.FindStringSubmatch(strings.TrimSpace(clause))
		if m == nil {
			return false, fmt.Errorf("unsupported condition expression: %q", clause)
		}
		name, err := resolveName(m[2], names)
		if err != nil {
			return false, err
		}
		_, exists := item[name]
		if exists != (m[1] == "attribute_exists") {
			return false, nil
		}
	}
	return true, nil
}

func resolveName(path string, names map[string]string) (string, error) {
	if !strings.HasPrefix(path, "#") {
		return path, nil
	}
	name, ok := names[path]
	if !ok {
		return "", fmt.Errorf("expression attribute name %s is not defined", path)
	}
	return name, nil
}
