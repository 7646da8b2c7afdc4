package responder

import "errors"

// ErrMalformedResponse marks a decoded body that carries neither a reply nor an error.
var ErrMalformedResponse = errors.New("malformed responder response")

// ProcessResponse is the responder reply. Optional fields are nil when absent.
type ProcessResponse struct {
	Response *string `json:"response,omitempty"`
	AudioURL *string `json:"audio_url,omitempty"`
	VideoURL *string `json:"video_url,omitempty"`
	Error    *string `json:"error,omitempty"`
}

// Text returns the reply text, or "" when absent.
func (r ProcessResponse) Text() string {
	return deref(r.Response)
}

// ErrorText returns the application error, or "" when there is none.
func (r ProcessResponse) ErrorText() string {
	return deref(r.Error)
}

// HasError reports whether the responder signalled an application error.
func (r ProcessResponse) HasError() bool {
	return r.ErrorText() != ""
}

// Audio returns the playable audio reference if present.
func (r ProcessResponse) Audio() (string, bool) {
	v := deref(r.AudioURL)
	return v, v != ""
}

// Video returns the playable video reference if present.
func (r ProcessResponse) Video() (string, bool) {
	v := deref(r.VideoURL)
	return v, v != ""
}

// Validate rejects bodies that fit neither the success nor the error shape.
func (r ProcessResponse) Validate() error {
	if r.HasError() || r.Response != nil {
		return nil
	}
	return ErrMalformedResponse
}

// Reply builds a successful response.
func Reply(text string) ProcessResponse {
	return ProcessResponse{Response: &text}
}

// WithAudio attaches an audio reference.
func (r ProcessResponse) WithAudio(url string) ProcessResponse {
	r.AudioURL = &url
	return r
}

// WithVideo attaches a video reference.
func (r ProcessResponse) WithVideo(url string) ProcessResponse {
	r.VideoURL = &url
	return r
}

// WithError attaches an application error.
func (r ProcessResponse) WithError(msg string) ProcessResponse {
	r.Error = &msg
	return r
}

// Failure builds an error-only response.
func Failure(msg string) ProcessResponse {
	return ProcessResponse{Error: &msg}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
