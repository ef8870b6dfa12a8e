package router

// Envelope is the typed request multiplexed over one connection. The
// requestId is caller-supplied and echoed verbatim on the response.
type Envelope struct {
	Event         string  `json:"event" validate:"required"`
	RequestID     string  `json:"requestId" validate:"required"`
	Authorization string  `json:"Authorization,omitempty"`
	Payload       Payload `json:"payload"`
}

type Payload struct {
	Query  Query  `json:"query"`
	Params Params `json:"params"`
}

type Query struct {
	UserID   string `json:"userId"`
	ThreadID string `json:"threadId"`
}

type Params struct {
	Participants []string `json:"participants"`
	ThreadID     string   `json:"threadId"`
	SenderID     string   `json:"senderId"`
	Content      string   `json:"content"`
	MessageType  string   `json:"messageType"`
	RoomID       string   `json:"roomId"`
	Username     string   `json:"username"`
}

// Response is the correlated reply to one Envelope.
type Response struct {
	Event      string `json:"event"`
	RequestID  string `json:"requestId"`
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Payload    any    `json:"payload,omitempty"`
	Error      string `json:"error,omitempty"`
}

func ok(env Envelope, statusCode int, payload any) Response {
	return Response{
		Event:      env.Event,
		RequestID:  env.RequestID,
		StatusCode: statusCode,
		Success:    true,
		Payload:    payload,
	}
}

func fail(env Envelope, statusCode int, message string) Response {
	return Response{
		Event:      env.Event,
		RequestID:  env.RequestID,
		StatusCode: statusCode,
		Success:    false,
		Error:      message,
	}
}
