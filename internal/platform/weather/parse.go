package weather

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

const resultCodeOK = "00"

type item struct {
	Category  string     `json:"category" xml:"category"`
	ObsrValue flexString `json:"obsrValue" xml:"obsrValue"`
}

type header struct {
	ResultCode string `json:"resultCode" xml:"resultCode"`
	ResultMsg  string `json:"resultMsg" xml:"resultMsg"`
}

type jsonEnvelope struct {
	Response struct {
		Header header `json:"header"`
		Body   struct {
			Items struct {
				Item []item `json:"item"`
			} `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

type xmlEnvelope struct {
	XMLName xml.Name
	Header  header `xml:"header"`
	Items   []item `xml:"body>items>item"`

	// data.go.kr gateway errors use a different root element.
	AuthMsg    string `xml:"cmmMsgHeader>returnAuthMsg"`
	ReasonCode string `xml:"cmmMsgHeader>returnReasonCode"`
}

// flexString accepts both "22.5" and 22.5 in JSON.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(b)
	return nil
}

// parseBody decodes a nowcast response. Bodies starting with '<' are XML.
func parseBody(raw []byte, obs *Observation) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fmt.Errorf("weather: empty response body")
	}
	var (
		hdr   header
		items []item
	)
	if trimmed[0] == '<' {
		var env xmlEnvelope
		if err := xml.Unmarshal(trimmed, &env); err != nil {
			return fmt.Errorf("weather: decode xml: %w", err)
		}
		if env.XMLName.Local == "OpenAPI_ServiceResponse" {
			return fmt.Errorf("weather: gateway error %s (%s)", strings.TrimSpace(env.AuthMsg), strings.TrimSpace(env.ReasonCode))
		}
		hdr, items = env.Header, env.Items
	} else {
		var env jsonEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return fmt.Errorf("weather: decode json: %w", err)
		}
		hdr, items = env.Response.Header, env.Response.Body.Items.Item
	}

	if code := strings.TrimSpace(hdr.ResultCode); code != "" && code != resultCodeOK {
		return fmt.Errorf("weather: upstream result %s: %s", code, strings.TrimSpace(hdr.ResultMsg))
	}
	if obs.Sky == "" {
		obs.Sky = ConditionUnknown
	}
	for _, it := range items {
		obs.apply(strings.TrimSpace(it.Category), strings.TrimSpace(string(it.ObsrValue)))
	}
	return nil
}
