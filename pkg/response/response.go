package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success", "error" or "denied"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Reason     string      `json:"reason,omitempty"`   // denial reason code
	Redirect   string      `json:"redirect,omitempty"` // path the client should navigate to
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Denied returns an access-denial response carrying the reason code and
// the redirect target the shell should follow
func Denied(statusCode int, reason, redirect string, data interface{}) Response {
	return Response{
		Status:     "denied",
		StatusCode: statusCode,
		Reason:     reason,
		Redirect:   redirect,
		Data:       data,
	}
}
