package models

// GameAction is a command sent by the device UI over the websocket,
// e.g. {"action_type": "guess", "payload": {"text": "kitten"}}.
type GameAction struct {
	ActionType string                 `json:"action_type"`
	Payload    map[string]interface{} `json:"payload"`
}

// String returns payload[key] when it is a string.
func (a GameAction) String(key string) string {
	if a.Payload == nil {
		return ""
	}
	s, _ := a.Payload[key].(string)
	return s
}

// Int returns payload[key] as an int. JSON numbers decode as float64.
func (a GameAction) Int(key string) (int, bool) {
	if a.Payload == nil {
		return 0, false
	}
	switch v := a.Payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Bool returns payload[key] when it is a bool.
func (a GameAction) Bool(key string) (bool, bool) {
	if a.Payload == nil {
		return false, false
	}
	b, ok := a.Payload[key].(bool)
	return b, ok
}
