package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// MutationEnvelope is the uniform answer for cart mutations. The storefront
// displays Message verbatim, so every message must be written for end users.
type MutationEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
