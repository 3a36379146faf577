package sms

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-cimclient/cim"
	"github.com/smnsjas/go-cimclient/wql"
	"github.com/smnsjas/go-cimclient/wsman"
)

// fakeClient stubs ObjectClient per method. Unstubbed methods fail
// the test when called.
type fakeClient struct {
	t *testing.T

	queryFn       func(className string, opts ...cim.QueryOption) ([]wsman.Instance, error)
	createFn      func(className string, props map[string]any, opts ...cim.CreateOption) (*wsman.Instance, error)
	updateFn      func(inst *wsman.Instance, props map[string]any) (*wsman.Instance, error)
	deleteFn      func(inst *wsman.Instance) error
	deleteWhereFn func(className string, filter wql.Expr) (int, error)
	invokeFn      func(className, method string, args map[string]any) (*cim.MethodResult, error)
	invokeOnFn    func(inst *wsman.Instance, method string, args map[string]any) (*cim.MethodResult, error)
}

func (f *fakeClient) Query(_ context.Context, className string, opts ...cim.QueryOption) ([]wsman.Instance, error) {
	if f.queryFn == nil {
		f.t.Fatal("unexpected Query call")
	}
	return f.queryFn(className, opts...)
}

func (f *fakeClient) Create(_ context.Context, className string, props map[string]any, opts ...cim.CreateOption) (*wsman.Instance, error) {
	if f.createFn == nil {
		f.t.Fatal("unexpected Create call")
	}
	return f.createFn(className, props, opts...)
}

func (f *fakeClient) Update(_ context.Context, inst *wsman.Instance, props map[string]any) (*wsman.Instance, error) {
	if f.updateFn == nil {
		f.t.Fatal("unexpected Update call")
	}
	return f.updateFn(inst, props)
}

func (f *fakeClient) Delete(_ context.Context, inst *wsman.Instance) error {
	if f.deleteFn == nil {
		f.t.Fatal("unexpected Delete call")
	}
	return f.deleteFn(inst)
}

func (f *fakeClient) DeleteWhere(_ context.Context, className string, filter wql.Expr) (int, error) {
	if f.deleteWhereFn == nil {
		f.t.Fatal("unexpected DeleteWhere call")
	}
	return f.deleteWhereFn(className, filter)
}

func (f *fakeClient) Invoke(_ context.Context, className, method string, args map[string]any, _ ...cim.InvokeOption) (*cim.MethodResult, error) {
	if f.invokeFn == nil {
		f.t.Fatal("unexpected Invoke call")
	}
	return f.invokeFn(className, method, args)
}

func (f *fakeClient) InvokeOn(_ context.Context, inst *wsman.Instance, method string, args map[string]any, _ ...cim.InvokeOption) (*cim.MethodResult, error) {
	if f.invokeOnFn == nil {
		f.t.Fatal("unexpected InvokeOn call")
	}
	return f.invokeOnFn(inst, method, args)
}

func TestService_InitiateClientOperation(t *testing.T) {
	var gotClass, gotMethod string
	var gotArgs map[string]any

	fake := &fakeClient{t: t, invokeFn: func(className, method string, args map[string]any) (*cim.MethodResult, error) {
		gotClass, gotMethod, gotArgs = className, method, args
		return &cim.MethodResult{Out: map[string][]string{"OperationID": {"42"}}}, nil
	}}
	s := NewService(fake, nil)

	id, err := s.InitiateClientOperation(context.Background(),
		OperationRequestMachinePolicy, "PS100011", nil)
	require.NoError(t, err)

	assert.Equal(t, 42, id)
	assert.Equal(t, "SMS_ClientOperation", gotClass)
	assert.Equal(t, "InitiateClientOperationEx", gotMethod)
	assert.Equal(t, 8, gotArgs["Type"])
	assert.Equal(t, "PS100011", gotArgs["TargetCollectionID"])
	assert.NotContains(t, gotArgs, "TargetResourceIDs")
}

func TestService_InitiateClientOperation_SiteFailure(t *testing.T) {
	fake := &fakeClient{t: t, invokeFn: func(string, string, map[string]any) (*cim.MethodResult, error) {
		return &cim.MethodResult{ReturnValue: 1}, nil
	}}
	s := NewService(fake, nil)

	_, err := s.InitiateClientOperation(context.Background(),
		OperationFullAntimalwareScan, "PS100011", []int{16777220})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site returned 1")
}

func TestService_CancelClientOperation(t *testing.T) {
	var gotArgs map[string]any
	fake := &fakeClient{t: t, invokeFn: func(_, method string, args map[string]any) (*cim.MethodResult, error) {
		require.Equal(t, "CancelClientOperation", method)
		gotArgs = args
		return &cim.MethodResult{}, nil
	}}
	s := NewService(fake, nil)

	require.NoError(t, s.CancelClientOperation(context.Background(), 42))
	assert.Equal(t, 42, gotArgs["OperationID"])
}

func TestService_ListClientOperations(t *testing.T) {
	fake := &fakeClient{t: t, queryFn: func(className string, _ ...cim.QueryOption) ([]wsman.Instance, error) {
		require.Equal(t, "SMS_ClientOperation", className)
		return []wsman.Instance{{
			ClassName: className,
			Properties: map[string][]string{
				"ID":                 {"7"},
				"Type":               {"8"},
				"State":              {"2"},
				"TargetCollectionID": {"PS100011"},
				"TotalClients":       {"150"},
			},
		}}, nil
	}}
	s := NewService(fake, nil)

	ops, err := s.ListClientOperations(context.Background())
	require.NoError(t, err)
	require.Len(t, ops, 1)

	assert.Equal(t, 7, ops[0].ID)
	assert.Equal(t, OperationRequestMachinePolicy, ops[0].Type)
	assert.Equal(t, 2, ops[0].State)
	assert.Equal(t, "PS100011", ops[0].CollectionID)
	assert.Equal(t, 150, ops[0].TotalClients)
}

func folderNode(id string) wsman.Instance {
	return wsman.Instance{
		ClassName:  "SMS_ObjectContainerNode",
		Properties: map[string][]string{"ContainerNodeID": {id}},
		Selectors:  []wsman.Selector{{Name: "ContainerNodeID", Value: id}},
	}
}

func TestService_MoveItem(t *testing.T) {
	resolves := 0
	var gotArgs map[string]any

	fake := &fakeClient{
		t: t,
		queryFn: func(className string, _ ...cim.QueryOption) ([]wsman.Instance, error) {
			require.Equal(t, "SMS_ObjectContainerNode", className)
			resolves++
			if resolves == 1 {
				return []wsman.Instance{folderNode("16777220")}, nil
			}
			return []wsman.Instance{folderNode("16777221")}, nil
		},
		invokeFn: func(className, method string, args map[string]any) (*cim.MethodResult, error) {
			require.Equal(t, "SMS_ObjectContainerItem", className)
			require.Equal(t, "MoveMembers", method)
			gotArgs = args
			return &cim.MethodResult{}, nil
		},
	}
	s := NewService(fake, nil)

	err := s.MoveItem(context.Background(), ObjectTypePackage, "PS100001", "Retired", "Archive")
	require.NoError(t, err)

	assert.Equal(t, 2, resolves)
	assert.Equal(t, []string{"PS100001"}, gotArgs["InstanceKeys"])
	assert.Equal(t, "16777220", gotArgs["ContainerNodeID"])
	assert.Equal(t, "16777221", gotArgs["TargetContainerNodeID"])
	assert.Equal(t, 2, gotArgs["ObjectType"])
}

// TestService_MoveItem_FolderResolution verifies the move is aborted
// before the invoke unless both folders resolve to exactly one node.
func TestService_MoveItem_FolderResolution(t *testing.T) {
	t.Run("source not found", func(t *testing.T) {
		fake := &fakeClient{t: t, queryFn: func(string, ...cim.QueryOption) ([]wsman.Instance, error) {
			return nil, nil
		}}
		s := NewService(fake, nil)

		err := s.MoveItem(context.Background(), ObjectTypePackage, "PS100001", "Missing", "Archive")
		assert.ErrorIs(t, err, cim.ErrNotFound)
	})

	t.Run("ambiguous target", func(t *testing.T) {
		resolves := 0
		fake := &fakeClient{t: t, queryFn: func(string, ...cim.QueryOption) ([]wsman.Instance, error) {
			resolves++
			if resolves == 1 {
				return []wsman.Instance{folderNode("1")}, nil
			}
			return []wsman.Instance{folderNode("2"), folderNode("3")}, nil
		}}
		s := NewService(fake, nil)

		err := s.MoveItem(context.Background(), ObjectTypePackage, "PS100001", "Retired", "Dup")
		assert.ErrorIs(t, err, ErrAmbiguousFolder)
	})
}

func TestService_CreateDriverPackage(t *testing.T) {
	var gotProps map[string]any
	fake := &fakeClient{t: t, createFn: func(className string, props map[string]any, _ ...cim.CreateOption) (*wsman.Instance, error) {
		require.Equal(t, "SMS_DriverPackage", className)
		gotProps = props
		return &wsman.Instance{
			ClassName:  className,
			Properties: map[string][]string{"PackageID": {"PS100050"}},
		}, nil
	}}
	s := NewService(fake, nil)

	pkg, err := s.CreateDriverPackage(context.Background(),
		"Dell Latitude", "Quarterly refresh", `\\fs01\drivers\latitude`)
	require.NoError(t, err)

	assert.Equal(t, "PS100050", pkg.Get("PackageID"))
	assert.Equal(t, "Dell Latitude", gotProps["Name"])
	assert.Equal(t, `\\fs01\drivers\latitude`, gotProps["PkgSourcePath"])
	assert.Equal(t, sourceFlagDirect, gotProps["PkgSourceFlag"])
}

func TestService_FindDriverPackages(t *testing.T) {
	fake := &fakeClient{t: t, queryFn: func(className string, opts ...cim.QueryOption) ([]wsman.Instance, error) {
		require.Equal(t, "SMS_DriverPackage", className)
		assert.Len(t, opts, 1)
		return []wsman.Instance{{ClassName: className}}, nil
	}}
	s := NewService(fake, nil)

	pkgs, err := s.FindDriverPackages(context.Background(), "Dell%", "HP%")
	require.NoError(t, err)
	assert.Len(t, pkgs, 1)
}

func TestService_DistributeContent(t *testing.T) {
	var gotProps map[string]any
	fake := &fakeClient{t: t, createFn: func(className string, props map[string]any, _ ...cim.CreateOption) (*wsman.Instance, error) {
		require.Equal(t, "SMS_DistributionPoint", className)
		gotProps = props
		return &wsman.Instance{ClassName: className}, nil
	}}
	s := NewService(fake, nil)

	nalPath := `["Display=\\dp01.contoso.com\"]MSWNET:["SMS_SITE=PS1"]\\dp01.contoso.com\`
	require.NoError(t, s.DistributeContent(context.Background(), "PS100001", nalPath, "PS1"))

	assert.Equal(t, "PS100001", gotProps["PackageID"])
	assert.Equal(t, nalPath, gotProps["ServerNALPath"])
	assert.Equal(t, "PS1", gotProps["SiteCode"])
}

func TestService_RemoveContent(t *testing.T) {
	var gotFilter wql.Expr
	fake := &fakeClient{t: t, deleteWhereFn: func(className string, filter wql.Expr) (int, error) {
		require.Equal(t, "SMS_DistributionPoint", className)
		gotFilter = filter
		return 1, nil
	}}
	s := NewService(fake, nil)

	require.NoError(t, s.RemoveContent(context.Background(), "PS100001", `\\dp01\`))

	rendered := wql.String(gotFilter)
	assert.Contains(t, rendered, "PackageID = 'PS100001'")
	assert.Contains(t, rendered, "ServerNALPath")
}

func TestService_TaskSequenceExportImport(t *testing.T) {
	sequence := `<sequence version="3.10"><step/></sequence>`

	fake := &fakeClient{t: t, queryFn: func(className string, _ ...cim.QueryOption) ([]wsman.Instance, error) {
		require.Equal(t, "SMS_TaskSequencePackage", className)
		return []wsman.Instance{{
			ClassName: className,
			Properties: map[string][]string{
				"PackageID": {"PS100020"},
				"Sequence":  {sequence},
			},
			Selectors: []wsman.Selector{{Name: "PackageID", Value: "PS100020"}},
		}}, nil
	}}
	s := NewService(fake, nil)

	path := filepath.Join(t.TempDir(), "ts.xml")
	require.NoError(t, s.ExportTaskSequence(context.Background(), "PS100020", path))

	exported, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sequence, string(exported))

	var gotProps map[string]any
	fake.updateFn = func(inst *wsman.Instance, props map[string]any) (*wsman.Instance, error) {
		require.NotEmpty(t, inst.Selectors)
		gotProps = props
		return inst, nil
	}
	require.NoError(t, s.ImportTaskSequence(context.Background(), "PS100020", path))
	assert.Equal(t, sequence, gotProps["Sequence"])
}

func TestService_GetTaskSequence_NotFound(t *testing.T) {
	fake := &fakeClient{t: t, queryFn: func(string, ...cim.QueryOption) ([]wsman.Instance, error) {
		return nil, nil
	}}
	s := NewService(fake, nil)

	_, err := s.GetTaskSequence(context.Background(), "PS1FFFFF")
	assert.ErrorIs(t, err, cim.ErrNotFound)
}
