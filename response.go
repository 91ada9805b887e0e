package wren

import "fmt"

// SMTPCode represents SMTP reply codes.
// 2yz: success, 3yz: continue, 5yz: permanent failure.
type SMTPCode int

const (
	CodeServiceReady   SMTPCode = 220
	CodeServiceClosing SMTPCode = 221
	CodeOK             SMTPCode = 250
	CodeStartMailInput SMTPCode = 354

	CodeCommandUnrecognized SMTPCode = 500
	CodeSyntaxError         SMTPCode = 501
	CodeBadSequence         SMTPCode = 503
)

// Response represents an SMTP reply to be sent to the client.
type Response struct {
	Code    SMTPCode
	Message string
}

// String formats the response as a wire reply line, terminator excluded.
func (r Response) String() string {
	return fmt.Sprintf("%d %s", r.Code, r.Message)
}

// IsError returns true for 4xx or 5xx codes.
func (r Response) IsError() bool {
	return r.Code >= 400
}

// IsSuccess returns true for 2xx codes.
func (r Response) IsSuccess() bool {
	return r.Code >= 200 && r.Code < 300
}

// ResponseServiceReady creates the 220 greeting.
// The domain must be the first word after the code.
func ResponseServiceReady(domain string) *Response {
	return &Response{Code: CodeServiceReady, Message: domain}
}

// ResponseServiceClosing creates the 221 closing reply.
func ResponseServiceClosing(domain string) *Response {
	return &Response{Code: CodeServiceClosing, Message: domain + " closing connection"}
}

// ResponseOK creates the 250 reply acknowledging an accepted command.
func ResponseOK() *Response {
	return &Response{Code: CodeOK, Message: "OK"}
}

// ResponseHello creates the 250 reply acknowledging HELO.
func ResponseHello(clientIP string) *Response {
	return &Response{Code: CodeOK, Message: fmt.Sprintf("Hello %s pleased to meet you", clientIP)}
}

// ResponseStartMailInput creates the 354 reply acknowledging DATA.
func ResponseStartMailInput() *Response {
	return &Response{Code: CodeStartMailInput, Message: "Start mail input; end with <CRLF>.<CRLF>"}
}

// ResponseCommandUnrecognized creates the 500 reply for an unknown keyword.
func ResponseCommandUnrecognized() *Response {
	return &Response{Code: CodeCommandUnrecognized, Message: "Syntax error: command unrecognized"}
}

// ResponseSyntaxError creates the 501 reply for a recognized command with
// malformed parameters or arguments.
func ResponseSyntaxError() *Response {
	return &Response{Code: CodeSyntaxError, Message: "Syntax error in parameters or arguments"}
}

// ResponseBadSequence creates the 503 reply for a recognized command issued
// in the wrong session state.
func ResponseBadSequence() *Response {
	return &Response{Code: CodeBadSequence, Message: "Bad sequence of commands"}
}
