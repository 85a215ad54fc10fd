package nrf

import (
	"encoding/json"
	"encoding/xml"
	"strings"
)

// EntitlementRef is the decoded form of an nrfEntitlementRef value. The
// raw attribute is "driverDN#status#xmlPayload"; the XML payload carries
// a <ref> element whose <param> child may in turn hold a JSON object.
type EntitlementRef struct {
	Driver   string
	Status   string
	XML      string
	Src      string
	ID       string
	ParamID  string
	ParamID2 string
	ParamID3 string
}

type entitlementRefXML struct {
	XMLName xml.Name `xml:"ref"`
	Src     string   `xml:"src"`
	ID      string   `xml:"id"`
	Param   string   `xml:"param"`
}

type entitlementParamJSON struct {
	ID  string `json:"ID"`
	ID2 string `json:"ID2"`
	ID3 string `json:"ID3"`
}

// DecodeEntitlementRef decodes a raw nrfEntitlementRef value. Each layer
// degrades independently: fewer than three "#" segments leave the missing
// fields empty, an unparseable XML payload leaves all XML-derived fields
// empty, and a non-JSON <param> is carried verbatim in ParamID.
func DecodeEntitlementRef(s string) EntitlementRef {
	var ref EntitlementRef

	parts := strings.SplitN(s, "#", 3)
	if len(parts) > 0 {
		ref.Driver = parts[0]
	}
	if len(parts) > 1 {
		ref.Status = parts[1]
	}
	if len(parts) > 2 {
		ref.XML = parts[2]
	}

	if ref.XML == "" {
		return ref
	}

	var payload entitlementRefXML
	if err := xml.Unmarshal([]byte(ref.XML), &payload); err != nil {
		return ref
	}
	ref.Src = payload.Src
	ref.ID = payload.ID

	if payload.Param == "" {
		return ref
	}
	var param entitlementParamJSON
	if err := json.Unmarshal([]byte(payload.Param), &param); err != nil {
		ref.ParamID = payload.Param
		return ref
	}
	ref.ParamID = param.ID
	ref.ParamID2 = param.ID2
	ref.ParamID3 = param.ID3
	return ref
}
