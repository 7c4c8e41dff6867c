package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateEndpoint inserts a collector endpoint, generating its id.
func (s *Store) CreateEndpoint(ctx context.Context, e *Endpoint) (_ *Endpoint, err error) {
	defer s.observe("create_endpoint", time.Now(), &err)

	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO endpoints (id, name, kind, address, auth_type, username, password, api_key, site, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), e.ID, e.Name, e.Kind, e.Address, e.AuthType, e.Username, e.Password, e.APIKey, e.Site, e.Notes, e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint: %w", err)
	}
	return e, nil
}

// GetEndpoint retrieves an endpoint by id.
func (s *Store) GetEndpoint(ctx context.Context, id string) (*Endpoint, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, kind, address, auth_type, username, password, api_key, site, notes, created_at
		FROM endpoints WHERE id = ?
	`), id)
	e, err := scanEndpoint(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("endpoint %s: %w", id, ErrNotFound)
	}
	return e, err
}

// ListEndpoints returns all endpoints ordered by name.
func (s *Store) ListEndpoints(ctx context.Context) ([]*Endpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, address, auth_type, username, password, api_key, site, notes, created_at
		FROM endpoints ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []*Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

// UpdateEndpoint replaces the mutable fields of an endpoint.
func (s *Store) UpdateEndpoint(ctx context.Context, e *Endpoint) (err error) {
	defer s.observe("update_endpoint", time.Now(), &err)

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE endpoints
		SET name = ?, kind = ?, address = ?, auth_type = ?, username = ?, password = ?, api_key = ?, site = ?, notes = ?
		WHERE id = ?
	`), e.Name, e.Kind, e.Address, e.AuthType, e.Username, e.Password, e.APIKey, e.Site, e.Notes, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update endpoint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("endpoint %s: %w", e.ID, ErrNotFound)
	}
	return nil
}

// DeleteEndpoint removes an endpoint.
func (s *Store) DeleteEndpoint(ctx context.Context, id string) (err error) {
	defer s.observe("delete_endpoint", time.Now(), &err)

	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM endpoints WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete endpoint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("endpoint %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanEndpoint(scanner rowScanner) (*Endpoint, error) {
	var e Endpoint
	var username, password, apiKey, site, notes sql.NullString
	err := scanner.Scan(&e.ID, &e.Name, &e.Kind, &e.Address, &e.AuthType,
		&username, &password, &apiKey, &site, &notes, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan endpoint: %w", err)
	}
	e.Username = nullString(username)
	e.Password = nullString(password)
	e.APIKey = nullString(apiKey)
	e.Site = nullString(site)
	e.Notes = nullString(notes)
	return &e, nil
}
