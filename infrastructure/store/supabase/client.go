// Package supabase records runs and reads subject records through the
// Supabase PostgREST API.
package supabase

import (
	"errors"
	"fmt"

	supa "github.com/supabase-community/supabase-go"

	"github.com/ghostpass/senate/internal/ports"
)

const storeName = "supabase"

// Table names.
const (
	RunsTable     = "senate_runs"
	SubjectsTable = "ghost_subjects"
)

var errMissingCredentials = errors.New("supabase url and service key are required")

// NewClient creates a Supabase client authenticated with the service key.
func NewClient(url, serviceKey string) (*supa.Client, error) {
	if url == "" || serviceKey == "" {
		return nil, errMissingCredentials
	}
	client, err := supa.NewClient(url, serviceKey, &supa.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return client, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return ports.NewStoreError(storeName, op, err)
}
