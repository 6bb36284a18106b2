package response

import (
	"encoding/json"
	"net/http"
)

// FetchResult is the record returned by the in-page fetch script.
type FetchResult struct {
	URL     string          `json:"url"`
	Status  int             `json:"status"`
	Reason  string          `json:"reason"`
	Headers [][2]string     `json:"headers"`
	Body    []int           `json:"body"`
	Text    *string         `json:"text"`
	JSON    json.RawMessage `json:"json"`
	Error   *FetchError     `json:"error"`
}

// FetchError is the sentinel the script returns when fetch itself rejected
// (network failure, CORS, abort) instead of completing with a status.
type FetchError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// FromPageFetch builds a Response from an in-page fetch record.
func FromPageFetch(r FetchResult) *Response {
	resp := &Response{
		URL:        r.URL,
		StatusCode: r.Status,
		Source:     SourcePage,
		page:       &r,
	}

	if r.Error != nil {
		resp.Reason = r.Error.Name + ": " + r.Error.Message
	} else {
		resp.Reason = r.Reason
		if resp.Reason == "" {
			resp.Reason = http.StatusText(r.Status)
		}
		resp.Header = make(http.Header, len(r.Headers))
		for _, kv := range r.Headers {
			resp.Header.Add(kv[0], kv[1])
		}
	}
	resp.OK = isOK(resp.StatusCode)
	return resp
}

func (r FetchResult) bytes() []byte {
	out := make([]byte, len(r.Body))
	for i, b := range r.Body {
		out[i] = byte(b)
	}
	return out
}

// structured reports the pre-parsed JSON body, if the page produced one.
func (r FetchResult) structured() (json.RawMessage, bool) {
	if len(r.JSON) == 0 || string(r.JSON) == "null" {
		return nil, false
	}
	return r.JSON, true
}
