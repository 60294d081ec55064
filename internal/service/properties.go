package service

import (
	"fmt"
	"time"

	"docvault/internal/catalog"
	"docvault/internal/model"
)

// ObjectInfo is the side-channel descriptor filled in during property
// compilation, so callers that need base type or content flags don't have to
// re-parse the compiled property set.
type ObjectInfo struct {
	ID          string
	Name        string
	TypeID      string
	BaseKind    model.Kind
	ParentID    string
	HasContent  bool
	ContentType string
	FileName    string
}

// Object is a node rendered for a caller: the compiled, filtered property
// set plus its descriptor.
type Object struct {
	Properties map[string]any `json:"properties"`
	Info       ObjectInfo     `json:"-"`
}

// compileProperties renders the node into a property map restricted to the
// requested filter (all properties when the filter is empty) and fills the
// ObjectInfo descriptor. Filter names that match no known property are
// logged, never errored.
func (e *Engine) compileProperties(n *model.Node, filter []string) *Object {
	all := map[string]any{
		model.PropertyID:               n.ID,
		model.PropertyTypeID:           n.TypeID,
		model.PropertyName:             n.Name,
		model.PropertyCreatedBy:        n.CreatedBy,
		model.PropertyCreationDate:     n.CreatedAt().Format(time.RFC3339),
		model.PropertyLastModifiedBy:   n.LastModifiedBy,
		model.PropertyModificationDate: n.ModifiedAt().Format(time.RFC3339),
		model.PropertyPath:             n.Path,
	}
	if !n.IsRoot() {
		all[model.PropertyParentID] = n.ParentID
	}
	if n.Kind == model.KindDocument {
		all[model.PropertyContentType] = n.ContentType
		all[model.PropertyFileName] = n.FileName
		all[model.PropertyContentLength] = n.ContentLength
	}
	for k, v := range n.Extra {
		all[k] = v
	}

	props := all
	if len(filter) > 0 {
		props = make(map[string]any, len(filter))
		for _, queryName := range filter {
			v, ok := all[queryName]
			if !ok {
				e.logUnknownFilter(n.ID, queryName)
				continue
			}
			props[queryName] = v
		}
	}

	return &Object{
		Properties: props,
		Info: ObjectInfo{
			ID:          n.ID,
			Name:        n.Name,
			TypeID:      n.TypeID,
			BaseKind:    n.Kind,
			ParentID:    n.ParentID,
			HasContent:  n.Kind == model.KindDocument && n.ContentLength > 0,
			ContentType: n.ContentType,
			FileName:    n.FileName,
		},
	}
}

// validateProperties checks the caller-supplied properties against the type
// definition: the name is extracted and validated, unknown or read-only
// properties are rejected, required properties must be present, and defaults
// fill the gaps. The returned map holds the schema properties that live
// outside the Node's fixed fields.
func validateProperties(def *catalog.TypeDefinition, props map[string]any) (name string, extra map[string]any, err error) {
	raw, ok := props[model.PropertyName]
	if ok {
		name, ok = raw.(string)
	}
	if !ok {
		return "", nil, fmt.Errorf("%w: property %q is required", ErrInvalidArgument, model.PropertyName)
	}
	if !model.ValidName(name) {
		return "", nil, fmt.Errorf("%w: invalid name %q", ErrNameConstraint, name)
	}

	extra = make(map[string]any)
	for queryName, value := range props {
		if queryName == model.PropertyName || queryName == model.PropertyTypeID {
			continue
		}
		pd, ok := def.Property(queryName)
		if !ok {
			return "", nil, fmt.Errorf("%w: property %q is not defined for type %q", ErrInvalidArgument, queryName, def.ID)
		}
		if pd.Updatability == catalog.UpdatabilityReadOnly {
			return "", nil, fmt.Errorf("%w: property %q is read-only", ErrInvalidArgument, queryName)
		}
		extra[queryName] = value
	}

	for i := range def.Properties {
		pd := &def.Properties[i]
		if pd.QueryName == model.PropertyName || pd.Updatability == catalog.UpdatabilityReadOnly {
			continue
		}
		if _, ok := extra[pd.QueryName]; ok {
			continue
		}
		if pd.Required {
			return "", nil, fmt.Errorf("%w: missing required property %q", ErrInvalidArgument, pd.QueryName)
		}
		if pd.Default != nil {
			extra[pd.QueryName] = pd.Default
		}
	}
	if len(extra) == 0 {
		extra = nil
	}
	return name, extra, nil
}
