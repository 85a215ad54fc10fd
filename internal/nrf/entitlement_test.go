package nrf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntitlementRefFull(t *testing.T) {
	raw := "cn=driver1,cn=driverset1,o=system#0#" +
		`<ref><src>APP-CATALOG</src><id>GROUP-42</id><param>{"ID":"one","ID2":"two","ID3":"three"}</param></ref>`

	ref := DecodeEntitlementRef(raw)

	assert.Equal(t, "cn=driver1,cn=driverset1,o=system", ref.Driver)
	assert.Equal(t, "0", ref.Status)
	assert.Equal(t, `<ref><src>APP-CATALOG</src><id>GROUP-42</id><param>{"ID":"one","ID2":"two","ID3":"three"}</param></ref>`, ref.XML)
	assert.Equal(t, "APP-CATALOG", ref.Src)
	assert.Equal(t, "GROUP-42", ref.ID)
	assert.Equal(t, "one", ref.ParamID)
	assert.Equal(t, "two", ref.ParamID2)
	assert.Equal(t, "three", ref.ParamID3)
}

func TestDecodeEntitlementRefEntityEncodedParam(t *testing.T) {
	raw := "cn=driver1,o=system#0#" +
		"<ref><src>AD</src><id>CN=Sales</id><param>{&quot;ID&quot;:&quot;alpha&quot;}</param></ref>"

	ref := DecodeEntitlementRef(raw)

	require.Equal(t, "AD", ref.Src)
	assert.Equal(t, "alpha", ref.ParamID)
	assert.Empty(t, ref.ParamID2)
	assert.Empty(t, ref.ParamID3)
}

func TestDecodeEntitlementRefHashInsideXML(t *testing.T) {
	raw := "driver#1#<ref><src>a#b</src><id>x</id><param></param></ref>"

	ref := DecodeEntitlementRef(raw)

	assert.Equal(t, "driver", ref.Driver)
	assert.Equal(t, "1", ref.Status)
	assert.Equal(t, "<ref><src>a#b</src><id>x</id><param></param></ref>", ref.XML)
	assert.Equal(t, "a#b", ref.Src)
}

func TestDecodeEntitlementRefPartial(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		driver string
		status string
		xml    string
	}{
		{name: "driver only", input: "cn=driver1,o=system", driver: "cn=driver1,o=system"},
		{name: "driver and status", input: "cn=driver1,o=system#50", driver: "cn=driver1,o=system", status: "50"},
		{name: "empty input", input: ""},
		{name: "empty segments", input: "##", xml: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ref := DecodeEntitlementRef(tc.input)
			assert.Equal(t, tc.driver, ref.Driver)
			assert.Equal(t, tc.status, ref.Status)
			assert.Equal(t, tc.xml, ref.XML)
			assert.Empty(t, ref.Src)
			assert.Empty(t, ref.ID)
			assert.Empty(t, ref.ParamID)
		})
	}
}

func TestDecodeEntitlementRefMalformedXML(t *testing.T) {
	raw := "driver#0#<ref><src>unclosed"

	ref := DecodeEntitlementRef(raw)

	assert.Equal(t, "driver", ref.Driver)
	assert.Equal(t, "0", ref.Status)
	assert.Equal(t, "<ref><src>unclosed", ref.XML)
	assert.Empty(t, ref.Src)
	assert.Empty(t, ref.ID)
	assert.Empty(t, ref.ParamID)
	assert.Empty(t, ref.ParamID2)
	assert.Empty(t, ref.ParamID3)
}

func TestDecodeEntitlementRefNonJSONParam(t *testing.T) {
	raw := "driver#0#<ref><src>SAP</src><id>ROLE-7</id><param>plain-legacy-value</param></ref>"

	ref := DecodeEntitlementRef(raw)

	assert.Equal(t, "SAP", ref.Src)
	assert.Equal(t, "ROLE-7", ref.ID)
	assert.Equal(t, "plain-legacy-value", ref.ParamID)
	assert.Empty(t, ref.ParamID2)
	assert.Empty(t, ref.ParamID3)
}
