package sms

import (
	"context"
	"fmt"

	"github.com/smnsjas/go-cimclient/wql"
)

const distributionPointClass = "SMS_DistributionPoint"

// DistributeContent targets a package at a distribution point by
// creating its distribution row. serverNALPath is the provider's
// network abstraction path for the distribution point.
func (s *Service) DistributeContent(ctx context.Context, packageID, serverNALPath, siteCode string) error {
	_, err := s.client.Create(ctx, distributionPointClass, map[string]any{
		"PackageID":     packageID,
		"ServerNALPath": serverNALPath,
		"SiteCode":      siteCode,
	})
	if err != nil {
		return fmt.Errorf("sms: distribute %s: %w", packageID, err)
	}

	s.logger.Info("content distribution added",
		"packageID", packageID, "site", siteCode)
	return nil
}

// RemoveContent removes a package's rows from a distribution point.
// Removing content that was never distributed there is a
// cim.ErrNotFound.
func (s *Service) RemoveContent(ctx context.Context, packageID, serverNALPath string) error {
	n, err := s.client.DeleteWhere(ctx, distributionPointClass, wql.And(
		wql.Eq("PackageID", packageID),
		wql.Eq("ServerNALPath", serverNALPath),
	))
	if err != nil {
		return fmt.Errorf("sms: remove content %s: %w", packageID, err)
	}

	s.logger.Info("content distribution removed",
		"packageID", packageID, "rows", n)
	return nil
}
