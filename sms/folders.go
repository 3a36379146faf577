package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/smnsjas/go-cimclient/cim"
	"github.com/smnsjas/go-cimclient/wql"
	"github.com/smnsjas/go-cimclient/wsman"
)

// ObjectType identifies what kind of object a console folder holds.
type ObjectType int

// Console folder object types.
const (
	ObjectTypePackage          ObjectType = 2
	ObjectTypeTaskSequence     ObjectType = 20
	ObjectTypeDriverPackage    ObjectType = 23
	ObjectTypeDeviceCollection ObjectType = 5000
	ObjectTypeUserCollection   ObjectType = 5001
)

const (
	containerNodeClass = "SMS_ObjectContainerNode"
	containerItemClass = "SMS_ObjectContainerItem"
)

// ErrAmbiguousFolder is returned when a folder name resolves to more
// than one container node of the requested object type.
var ErrAmbiguousFolder = errors.New("sms: folder name is ambiguous")

// MoveItem moves the object identified by instanceKey from one
// console folder to another. Both folder names must resolve to
// exactly one container node of the given object type; anything else
// aborts the move before it is attempted.
func (s *Service) MoveItem(ctx context.Context, objectType ObjectType, instanceKey, sourceFolder, targetFolder string) error {
	source, err := s.resolveFolder(ctx, objectType, sourceFolder)
	if err != nil {
		return fmt.Errorf("sms: move %s: source: %w", instanceKey, err)
	}
	target, err := s.resolveFolder(ctx, objectType, targetFolder)
	if err != nil {
		return fmt.Errorf("sms: move %s: target: %w", instanceKey, err)
	}

	result, err := s.client.Invoke(ctx, containerItemClass, "MoveMembers", map[string]any{
		"InstanceKeys":          []string{instanceKey},
		"ContainerNodeID":       source.Get("ContainerNodeID"),
		"TargetContainerNodeID": target.Get("ContainerNodeID"),
		"ObjectType":            int(objectType),
	})
	if err != nil {
		return fmt.Errorf("sms: move %s: %w", instanceKey, err)
	}
	if !result.Succeeded() {
		return fmt.Errorf("sms: move %s: site returned %d", instanceKey, result.ReturnValue)
	}

	s.logger.Info("object moved",
		"key", instanceKey, "from", sourceFolder, "to", targetFolder)
	return nil
}

// resolveFolder finds the single container node with the given name
// and object type.
func (s *Service) resolveFolder(ctx context.Context, objectType ObjectType, name string) (*wsman.Instance, error) {
	nodes, err := s.client.Query(ctx, containerNodeClass,
		cim.Where(wql.And(
			wql.Eq("Name", name),
			wql.EqInt("ObjectType", int(objectType)),
		)))
	if err != nil {
		return nil, err
	}

	switch len(nodes) {
	case 0:
		return nil, fmt.Errorf("folder %q: %w", name, cim.ErrNotFound)
	case 1:
		return &nodes[0], nil
	default:
		return nil, fmt.Errorf("folder %q matches %d nodes: %w", name, len(nodes), ErrAmbiguousFolder)
	}
}
