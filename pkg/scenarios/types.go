package scenarios

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotFound is returned when no scenario matches, including when it belongs to another owner
	ErrNotFound = errors.New("scenario not found")

	// ErrMissingInput is returned when a cross-scenario query names no scenarios or outputs
	ErrMissingInput = errors.New("scenario ids and output names are required")
)

// Well-known document keys
const (
	KeyID           = "_id"
	KeyName         = "name"
	KeyDescription  = "description"
	KeyStart        = "start"
	KeyOwner        = "userid"
	KeyModelInputs  = "modelInputs"
	KeyModelOutputs = "modelOutputs"
	KeyModelSets    = "modelSets"
	KeySettings     = "modelSettings"
	KeyModelID      = "modelID"
	KeyVarName      = "varName"
)

// Document is a scenario as stored: an arbitrary JSON object
type Document map[string]any

// ModelID returns modelSettings.modelID in string form, or "" when absent
func (d Document) ModelID() string {
	settings, ok := d[KeySettings].(map[string]any)
	if !ok {
		return ""
	}
	v, ok := settings[KeyModelID]
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}

// Outputs returns the modelOutputs entries that are JSON objects
func (d Document) Outputs() []map[string]any {
	raw, ok := d[KeyModelOutputs].([]any)
	if !ok {
		return nil
	}
	outputs := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if output, ok := item.(map[string]any); ok {
			outputs = append(outputs, output)
		}
	}
	return outputs
}

// Summary returns a shallow copy without the bulk payload keys. With
// dropOwner set the owner key is removed as well.
func (d Document) Summary(dropOwner bool) Document {
	out := make(Document, len(d))
	for k, v := range d {
		switch k {
		case KeyModelInputs, KeyModelOutputs, KeyModelSets:
			continue
		case KeyOwner:
			if dropOwner {
				continue
			}
		}
		out[k] = v
	}
	return out
}

// OutputKey identifies one scenario in a cross-scenario result
type OutputKey struct {
	ID          string `json:"id"`
	Name        any    `json:"name,omitempty"`
	Description any    `json:"description,omitempty"`
	Start       any    `json:"start,omitempty"`
}

// OutputGroup holds the requested outputs of one scenario
type OutputGroup struct {
	Key          OutputKey        `json:"_id"`
	ModelOutputs []map[string]any `json:"modelOutputs"`
}

// Store is the scenario document collaborator
type Store interface {
	FindPublic(ctx context.Context, id string) (Document, error)
	FindPrivate(ctx context.Context, id, ownerID string) (Document, error)

	// ListPublic and ListPrivate return summaries; an empty modelID matches every model
	ListPublic(ctx context.Context, modelID string) ([]Document, error)
	ListPrivate(ctx context.Context, ownerID, modelID string) ([]Document, error)

	// DeletePrivate removes the scenario only when both id and owner match
	DeletePrivate(ctx context.Context, id, ownerID string) (bool, error)

	// FilterOutputs searches the public space when ownerID is nil and the
	// owner's private space otherwise
	FilterOutputs(ctx context.Context, ids, names []string, ownerID *string) ([]OutputGroup, error)
}

// GroupOutputs builds the cross-scenario result for docs, keeping only
// outputs whose varName is in names. Scenarios with no matching output are left out.
func GroupOutputs(docs []Document, names []string) []OutputGroup {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var groups []OutputGroup
	for _, doc := range docs {
		var matched []map[string]any
		for _, output := range doc.Outputs() {
			if name, ok := output[KeyVarName].(string); ok && wanted[name] {
				matched = append(matched, output)
			}
		}
		if len(matched) == 0 {
			continue
		}
		id, _ := doc[KeyID].(string)
		groups = append(groups, OutputGroup{
			Key: OutputKey{
				ID:          id,
				Name:        doc[KeyName],
				Description: doc[KeyDescription],
				Start:       doc[KeyStart],
			},
			ModelOutputs: matched,
		})
	}
	return groups
}

// OwnerKey is the stored form of an owner id
func OwnerKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
