package nrf

import (
	"encoding/json"
	"encoding/xml"
	"strings"
)

type dynamicParamsXML struct {
	XMLName xml.Name `xml:"parameter"`
	Value   string   `xml:"value"`
}

// DecodeDynamicParams extracts the JSON document embedded in an
// nrfDynamicParmVals value. The attribute is an XML <parameter> element
// whose <value> text is an HTML-entity-encoded JSON fragment. The
// fragment is unescaped, parsed, and re-serialized so callers get
// canonical JSON. Any failure along the way returns "": the caller keeps
// the raw attribute regardless.
func DecodeDynamicParams(s string) string {
	if s == "" {
		return ""
	}

	var payload dynamicParamsXML
	if err := xml.Unmarshal([]byte(s), &payload); err != nil {
		return ""
	}

	value := strings.ReplaceAll(payload.Value, "&quot;", `"`)
	value = strings.ReplaceAll(value, "&lt;", "<")
	value = strings.ReplaceAll(value, "&gt;", ">")

	var doc interface{}
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return ""
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(out)
}
