package sms

import (
	"context"
	"fmt"
	"os"

	"github.com/smnsjas/go-cimclient/cim"
	"github.com/smnsjas/go-cimclient/wql"
	"github.com/smnsjas/go-cimclient/wsman"
)

const taskSequenceClass = "SMS_TaskSequencePackage"

// GetTaskSequence returns the task sequence package with the given
// package ID, including its lazily-delivered Sequence XML.
func (s *Service) GetTaskSequence(ctx context.Context, packageID string) (*wsman.Instance, error) {
	rows, err := s.client.Query(ctx, taskSequenceClass,
		cim.Where(wql.Eq("PackageID", packageID)),
		cim.LazyProperties())
	if err != nil {
		return nil, fmt.Errorf("sms: get task sequence %s: %w", packageID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sms: task sequence %s: %w", packageID, cim.ErrNotFound)
	}
	return &rows[0], nil
}

// ExportTaskSequence writes a task sequence's Sequence XML to path.
func (s *Service) ExportTaskSequence(ctx context.Context, packageID, path string) error {
	ts, err := s.GetTaskSequence(ctx, packageID)
	if err != nil {
		return err
	}

	sequence := ts.Get("Sequence")
	if sequence == "" {
		return fmt.Errorf("sms: task sequence %s has no sequence body", packageID)
	}

	if err := os.WriteFile(path, []byte(sequence), 0600); err != nil {
		return fmt.Errorf("sms: export task sequence %s: %w", packageID, err)
	}

	s.logger.Info("task sequence exported",
		"packageID", packageID, "path", path)
	return nil
}

// ImportTaskSequence replaces a task sequence's Sequence XML with the
// contents of path.
func (s *Service) ImportTaskSequence(ctx context.Context, packageID, path string) error {
	sequence, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("sms: import task sequence %s: %w", packageID, err)
	}
	if len(sequence) == 0 {
		return fmt.Errorf("sms: import task sequence %s: %s is empty", packageID, path)
	}

	ts, err := s.GetTaskSequence(ctx, packageID)
	if err != nil {
		return err
	}

	if _, err := s.client.Update(ctx, ts, map[string]any{
		"Sequence": string(sequence),
	}); err != nil {
		return fmt.Errorf("sms: import task sequence %s: %w", packageID, err)
	}

	s.logger.Info("task sequence imported",
		"packageID", packageID, "path", path)
	return nil
}
