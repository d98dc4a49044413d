package api

// Response answers a correlated command. Payload is a JSON document on
// success; Err describes the failure otherwise.
type Response struct {
	RequestID uint64
	Payload   string
	Err       string
}

// Success builds a successful response carrying a JSON payload.
func Success(id uint64, payload string) Response {
	return Response{RequestID: id, Payload: payload}
}

// Failure builds a failed response.
func Failure(id uint64, err string) Response {
	return Response{RequestID: id, Err: err}
}

// Failed reports whether the response carries an error.
func (r Response) Failed() bool {
	return r.Err != ""
}
