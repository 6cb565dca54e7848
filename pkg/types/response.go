package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
