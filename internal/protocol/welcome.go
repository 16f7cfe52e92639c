package protocol

import "encoding/json"

// welcomeWire is the JSON shape of the welcome message, sent by the server
// as a text frame immediately after upgrade (the one frame on the tunnel
// that is never MessagePack-encoded).
type welcomeWire struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// ParseWelcomeJSON parses the server's first post-upgrade text message.
func ParseWelcomeJSON(raw []byte) (*WelcomeFrame, error) {
	var w welcomeWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &WelcomeFrame{Type: TypeWelcome, URL: w.URL, Error: w.Error}, nil
}
