package telephony

import (
	"encoding/xml"
	"sort"
)

type twimlResponse struct {
	XMLName xml.Name      `xml:"Response"`
	Say     string        `xml:"Say,omitempty"`
	Connect *twimlConnect `xml:"Connect,omitempty"`
	Hangup  *struct{}     `xml:"Hangup,omitempty"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// BridgeDocument renders the call-control XML that streams an answered call
// into the agent's WebSocket. Parameters ride along as custom stream
// parameters; keys are sorted so the output is stable.
func BridgeDocument(wsURL string, params map[string]string) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stream := twimlStream{URL: wsURL}
	for _, k := range keys {
		if params[k] == "" {
			continue
		}
		stream.Parameters = append(stream.Parameters, twimlParameter{Name: k, Value: params[k]})
	}

	doc := twimlResponse{Connect: &twimlConnect{Stream: stream}}
	out, err := xml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return xml.Header + string(out), nil
}

// FailureDocument speaks a short apology and hangs up. Used when the bridge
// cannot be built, so the caller is not left on a silent line.
func FailureDocument(message string) string {
	if message == "" {
		message = "Sorry, we are unable to connect your call right now. Please try again later."
	}
	doc := twimlResponse{Say: message, Hangup: &struct{}{}}
	out, err := xml.Marshal(doc)
	if err != nil {
		return xml.Header + "<Response><Hangup/></Response>"
	}
	return xml.Header + string(out)
}
