package table

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// Projection describes which attributes a secondary index carries.
type Projection struct {
	Kind ProjectionKind
	// In addition to the key attributes, the index includes these non-key attributes.
	// Only used if Kind is ProjectSubset.
	NonKeyAttributes []string
}

type ProjectionKind string

const (
	ProjectAll      ProjectionKind = "ALL"
	ProjectOnlyKeys ProjectionKind = "KEYS_ONLY"
	ProjectSubset   ProjectionKind = "INCLUDE"
)

// ProjectFields selects the projection from an optional field list:
// nil projects everything, an empty list projects only keys.
func ProjectFields(fields []string) Projection {
	switch {
	case fields == nil:
		return Projection{Kind: ProjectAll}
	case len(fields) == 0:
		return Projection{Kind: ProjectOnlyKeys}
	default:
		return Projection{Kind: ProjectSubset, NonKeyAttributes: append([]string(nil), fields...)}
	}
}

func (p Projection) ddb() *types.Projection {
	out := &types.Projection{ProjectionType: types.ProjectionType(p.Kind)}
	if p.Kind == ProjectSubset {
		out.NonKeyAttributes = p.NonKeyAttributes
	}
	return out
}

func projectionFromDDB(p *types.Projection) Projection {
	if p == nil {
		return Projection{Kind: ProjectAll}
	}
	return Projection{
		Kind:             ProjectionKind(p.ProjectionType),
		NonKeyAttributes: p.NonKeyAttributes,
	}
}
