package cim

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-cimclient/wql"
	"github.com/smnsjas/go-cimclient/wsman"
)

// packageBatch renders an optimized enumeration answer carrying
// object-and-EPR items for the given package names.
func packageBatch(names ...string) string {
	var sb strings.Builder
	sb.WriteString(`<n:EnumerateResponse><n:EnumerationContext/><w:Items>`)
	for i, name := range names {
		id := "PS10000" + string(rune('1'+i))
		sb.WriteString(`<w:Item>
  <p:SMS_Package xmlns:p="uri"><p:PackageID>` + id + `</p:PackageID><p:Name>` + name + `</p:Name></p:SMS_Package>
  <a:EndpointReference>
    <a:Address>` + wsman.AddressAnonymous + `</a:Address>
    <a:ReferenceParameters>
      <w:SelectorSet><w:Selector Name="PackageID">` + id + `</w:Selector></w:SelectorSet>
    </a:ReferenceParameters>
  </a:EndpointReference>
</w:Item>`)
	}
	sb.WriteString(`</w:Items><w:EndOfSequence/></n:EnumerateResponse>`)
	return soapEnv(sb.String())
}

// TestClient_Query covers the default fast strategy, including the
// implicit connect on first use.
func TestClient_Query(t *testing.T) {
	c, site := newTestClient(t, "", func(req string) string {
		if strings.Contains(req, "<n:Enumerate>") && strings.Contains(req, "SMS_Package") {
			return packageBatch("Tools", "Drivers")
		}
		return ""
	})

	items, err := c.Query(context.Background(), "SMS_Package")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Tools", items[0].Get("Name"))
	assert.Equal(t, "Drivers", items[1].Get("Name"))
	require.Len(t, items[0].Selectors, 1)
	assert.Equal(t, "PS100001", items[0].Selectors[0].Value)

	// Lazy connect: the query triggered resolution.
	assert.Equal(t, 2, site.count("wsmid:Identify"))
	assert.Equal(t, 1, site.count("SMS_ProviderLocation"))

	enum := site.find("SMS_Package")
	require.NotEmpty(t, enum)
	assert.Contains(t, enum, "wmi/root/sms/site_PS1/SMS_Package")
	assert.Contains(t, enum, "OptimizeEnumeration")
	assert.Contains(t, enum, "EnumerateObjectAndEPR")
}

func TestClient_Query_Where(t *testing.T) {
	c, site := newTestClient(t, "", func(req string) string {
		if strings.Contains(req, "SMS_Package") {
			return packageBatch("Drivers")
		}
		return ""
	})

	_, err := c.Query(context.Background(), "SMS_Package",
		Where(wql.Like("Name", "Drivers%")))
	require.NoError(t, err)

	enum := site.find("SELECT * FROM SMS_Package WHERE")
	require.NotEmpty(t, enum)
	assert.Contains(t, enum, "Drivers%")
}

func TestClient_Query_EmptyClass(t *testing.T) {
	c, site := newTestClient(t, "", nil)

	_, err := c.Query(context.Background(), "")
	require.ErrorIs(t, err, ErrClassNotSpecified)

	// Configuration errors never reach the wire.
	assert.Equal(t, 0, site.count("Envelope"))
}

// TestClient_Query_Join verifies join filters force the batched
// strategy: a plain enumerate followed by pulls, no optimization.
func TestClient_Query_Join(t *testing.T) {
	c, site := newTestClient(t, "", func(req string) string {
		switch {
		case strings.Contains(req, "<n:Enumerate>"):
			return soapEnv(`<n:EnumerateResponse><n:EnumerationContext>ctx-1</n:EnumerationContext></n:EnumerateResponse>`)
		case strings.Contains(req, "<n:Pull>"):
			return packageBatchAsPull("Tools")
		}
		return ""
	})

	statement := "SELECT SMS_Package.* FROM SMS_Package JOIN SMS_DistributionPoint ON SMS_Package.PackageID = SMS_DistributionPoint.PackageID"
	items, err := c.Query(context.Background(), "SMS_Package",
		WhereText(statement), RequiresJoin())
	require.NoError(t, err)
	require.Len(t, items, 1)

	enum := site.find("<n:Enumerate>")
	require.NotEmpty(t, enum)
	assert.NotContains(t, enum, "OptimizeEnumeration")
	assert.Contains(t, enum, "JOIN")

	pull := site.find("<n:Pull>")
	require.NotEmpty(t, pull)
	assert.Contains(t, pull, "ctx-1")
}

// packageBatchAsPull renders a PullResponse terminal batch.
func packageBatchAsPull(name string) string {
	return soapEnv(`<n:PullResponse><w:Items>
<w:Item>
  <p:SMS_Package xmlns:p="uri"><p:PackageID>PS100001</p:PackageID><p:Name>` + name + `</p:Name></p:SMS_Package>
  <a:EndpointReference>
    <a:Address>` + wsman.AddressAnonymous + `</a:Address>
    <a:ReferenceParameters>
      <w:SelectorSet><w:Selector Name="PackageID">PS100001</w:Selector></w:SelectorSet>
    </a:ReferenceParameters>
  </a:EndpointReference>
</w:Item>
</w:Items><w:EndOfSequence/></n:PullResponse>`)
}

// TestClient_Query_LazyProperties verifies each result is re-fetched
// by identity so omitted properties get populated.
func TestClient_Query_LazyProperties(t *testing.T) {
	c, site := newTestClient(t, "", func(req string) string {
		switch {
		case strings.Contains(req, "<n:Enumerate>"):
			return soapEnv(`<n:EnumerateResponse><n:EnumerationContext>ctx-1</n:EnumerationContext></n:EnumerateResponse>`)
		case strings.Contains(req, "<n:Pull>"):
			return soapEnv(`<n:PullResponse><w:Items>
<w:Item>
  <p:SMS_TaskSequencePackage xmlns:p="uri"><p:PackageID>PS100001</p:PackageID><p:Name>Deploy</p:Name></p:SMS_TaskSequencePackage>
  <a:EndpointReference>
    <a:Address>` + wsman.AddressAnonymous + `</a:Address>
    <a:ReferenceParameters>
      <w:SelectorSet><w:Selector Name="PackageID">PS100001</w:Selector></w:SelectorSet>
    </a:ReferenceParameters>
  </a:EndpointReference>
</w:Item>
</w:Items><w:EndOfSequence/></n:PullResponse>`)
		case strings.Contains(req, "transfer/Get"):
			return soapEnv(`<p:SMS_TaskSequencePackage xmlns:p="uri">
  <p:PackageID>PS100001</p:PackageID>
  <p:Name>Deploy</p:Name>
  <p:Sequence>&lt;sequence/&gt;</p:Sequence>
</p:SMS_TaskSequencePackage>`)
		}
		return ""
	})

	items, err := c.Query(context.Background(), "SMS_TaskSequencePackage", LazyProperties())
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "<sequence/>", items[0].Get("Sequence"))
	require.Len(t, items[0].Selectors, 1)
	assert.Equal(t, "PS100001", items[0].Selectors[0].Value)

	get := site.find("transfer/Get")
	require.NotEmpty(t, get)
	assert.Contains(t, get, `Name="PackageID"`)
}

// TestClient_Query_RetryTransient verifies the transient RPC fault is
// retried and the call eventually succeeds.
func TestClient_Query_RetryTransient(t *testing.T) {
	attempts := 0
	c, site := newTestClient(t, "", func(req string) string {
		if strings.Contains(req, "SMS_Package") {
			attempts++
			if attempts <= 2 {
				return rpcFault
			}
			return packageBatch("Tools")
		}
		return ""
	})

	items, err := c.Query(context.Background(), "SMS_Package")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 3, site.count("SMS_Package"))
}

// TestClient_Query_RetryExhausted verifies the retry budget is four
// attempts total, after which the fault propagates.
func TestClient_Query_RetryExhausted(t *testing.T) {
	c, site := newTestClient(t, "", func(req string) string {
		if strings.Contains(req, "SMS_Package") {
			return rpcFault
		}
		return ""
	})

	_, err := c.Query(context.Background(), "SMS_Package")
	require.Error(t, err)
	assert.True(t, wsman.IsTransientRPC(err))
	assert.Equal(t, 4, site.count("SMS_Package"))
}

// TestClient_Query_NonTransientNotRetried verifies other faults
// propagate on first occurrence.
func TestClient_Query_NonTransientNotRetried(t *testing.T) {
	c, site := newTestClient(t, "", func(req string) string {
		if strings.Contains(req, "SMS_Package") {
			return accessDeniedFault
		}
		return ""
	})

	_, err := c.Query(context.Background(), "SMS_Package")
	require.Error(t, err)
	assert.False(t, wsman.IsTransientRPC(err))

	var fault *wsman.Fault
	require.True(t, errors.As(err, &fault))
	assert.True(t, fault.IsAccessDenied())
	assert.Equal(t, 1, site.count("SMS_Package"))
}

// TestClient_Query_ReusesConnection verifies repeated operations ride
// the resolved connection instead of re-resolving.
func TestClient_Query_ReusesConnection(t *testing.T) {
	c, site := newTestClient(t, "", func(req string) string {
		if strings.Contains(req, "SMS_Package") {
			return packageBatch("Tools")
		}
		return ""
	})

	for i := 0; i < 3; i++ {
		_, err := c.Query(context.Background(), "SMS_Package")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, site.count("wsmid:Identify"))
	assert.Equal(t, 1, site.count("SMS_ProviderLocation"))
}
