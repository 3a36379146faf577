package sms

import (
	"context"
	"fmt"

	"github.com/smnsjas/go-cimclient/cim"
	"github.com/smnsjas/go-cimclient/wql"
	"github.com/smnsjas/go-cimclient/wsman"
)

const driverPackageClass = "SMS_DriverPackage"

// Package source flags. Compressed copies are kept on the site
// server; direct packages serve straight from the source share.
const (
	sourceFlagCompressed = 1
	sourceFlagDirect     = 2
)

// CreateDriverPackage creates a driver package backed by the given
// UNC source path.
func (s *Service) CreateDriverPackage(ctx context.Context, name, description, sourcePath string) (*wsman.Instance, error) {
	pkg, err := s.client.Create(ctx, driverPackageClass, map[string]any{
		"Name":          name,
		"Description":   description,
		"PkgSourceFlag": sourceFlagDirect,
		"PkgSourcePath": sourcePath,
	})
	if err != nil {
		return nil, fmt.Errorf("sms: create driver package %q: %w", name, err)
	}

	s.logger.Info("driver package created",
		"name", name, "packageID", pkg.Get("PackageID"))
	return pkg, nil
}

// FindDriverPackages returns the driver packages whose names match
// any of the patterns (% and _ wildcards).
func (s *Service) FindDriverPackages(ctx context.Context, patterns ...string) ([]wsman.Instance, error) {
	opts := []cim.QueryOption{}
	if len(patterns) > 0 {
		opts = append(opts, cim.Where(wql.Match("Name", patterns, true)))
	}

	pkgs, err := s.client.Query(ctx, driverPackageClass, opts...)
	if err != nil {
		return nil, fmt.Errorf("sms: find driver packages: %w", err)
	}
	return pkgs, nil
}
