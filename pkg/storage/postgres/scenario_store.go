package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/iLink-CyberShARE/swim-api/pkg/scenarios"
)

// ScenarioStore implements scenarios.Store over JSONB documents in
// public_scenarios and private_scenarios. It requires PostgreSQL.
type ScenarioStore struct {
	db *sql.DB
}

// NewScenarioStore creates a scenario store
func NewScenarioStore(db *sql.DB) *ScenarioStore {
	return &ScenarioStore{db: db}
}

func (s *ScenarioStore) FindPublic(ctx context.Context, id string) (scenarios.Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM public_scenarios WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scenarios.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query public scenario: %w", err)
	}
	return decodeDocument(id, raw)
}

func (s *ScenarioStore) FindPrivate(ctx context.Context, id, ownerID string) (scenarios.Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM private_scenarios WHERE id = $1 AND user_id = $2`, id, ownerID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scenarios.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query private scenario: %w", err)
	}

	doc, err := decodeDocument(id, raw)
	if err != nil {
		return nil, err
	}
	doc[scenarios.KeyOwner] = ownerID
	return doc, nil
}

func (s *ScenarioStore) ListPublic(ctx context.Context, modelID string) ([]scenarios.Document, error) {
	query := `
		SELECT id, doc - 'modelInputs' - 'modelOutputs' - 'modelSets'
		FROM public_scenarios
		WHERE $1 = '' OR doc -> 'modelSettings' ->> 'modelID' = $1
		ORDER BY id
	`
	return s.list(ctx, query, modelID)
}

func (s *ScenarioStore) ListPrivate(ctx context.Context, ownerID, modelID string) ([]scenarios.Document, error) {
	query := `
		SELECT id, doc - 'modelInputs' - 'modelOutputs' - 'modelSets' - 'userid'
		FROM private_scenarios
		WHERE user_id = $1 AND ($2 = '' OR doc -> 'modelSettings' ->> 'modelID' = $2)
		ORDER BY id
	`
	return s.list(ctx, query, ownerID, modelID)
}

func (s *ScenarioStore) list(ctx context.Context, query string, args ...interface{}) ([]scenarios.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var docs []scenarios.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		doc, err := decodeDocument(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	return docs, nil
}

// DeletePrivate deletes in a single statement so a scenario owned by someone
// else is never touched
func (s *ScenarioStore) DeletePrivate(ctx context.Context, id, ownerID string) (bool, error) {
	var deleted string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM private_scenarios WHERE id = $1 AND user_id = $2 RETURNING id`, id, ownerID,
	).Scan(&deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete private scenario: %w", err)
	}
	return true, nil
}

func (s *ScenarioStore) FilterOutputs(ctx context.Context, ids, names []string, ownerID *string) ([]scenarios.OutputGroup, error) {
	const selectGroups = `
		SELECT s.id, s.doc -> 'name', s.doc -> 'description', s.doc -> 'start',
			jsonb_agg(o.value ORDER BY o.ordinality)
		FROM %s s,
			jsonb_array_elements(s.doc -> 'modelOutputs') WITH ORDINALITY AS o(value, ordinality)
		WHERE s.id = ANY($1) AND o.value ->> 'varName' = ANY($2) %s
		GROUP BY s.id
		ORDER BY s.id
	`

	var (
		rows *sql.Rows
		err  error
	)
	if ownerID == nil {
		rows, err = s.db.QueryContext(ctx,
			fmt.Sprintf(selectGroups, "public_scenarios", ""),
			pq.Array(ids), pq.Array(names))
	} else {
		rows, err = s.db.QueryContext(ctx,
			fmt.Sprintf(selectGroups, "private_scenarios", "AND s.user_id = $3"),
			pq.Array(ids), pq.Array(names), *ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to filter scenario outputs: %w", err)
	}
	defer rows.Close()

	var groups []scenarios.OutputGroup
	for rows.Next() {
		var (
			group                    scenarios.OutputGroup
			name, description, start []byte
			outputs                  []byte
		)
		if err := rows.Scan(&group.Key.ID, &name, &description, &start, &outputs); err != nil {
			return nil, fmt.Errorf("failed to scan scenario outputs: %w", err)
		}
		group.Key.Name = decodeValue(name)
		group.Key.Description = decodeValue(description)
		group.Key.Start = decodeValue(start)
		if err := json.Unmarshal(outputs, &group.ModelOutputs); err != nil {
			return nil, fmt.Errorf("failed to decode outputs of %s: %w", group.Key.ID, err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to filter scenario outputs: %w", err)
	}
	return groups, nil
}

func decodeDocument(id string, raw []byte) (scenarios.Document, error) {
	var doc scenarios.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario %s: %w", id, err)
	}
	if doc == nil {
		doc = scenarios.Document{}
	}
	doc[scenarios.KeyID] = id
	return doc, nil
}

func decodeValue(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
