package browser

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/response"
	"github.com/GriffinCanCode/admitted/internal/shared/id"
)

// FetchRequest is an HTTP request issued from inside the page, so it
// carries the page's cookies and credentials.
type FetchRequest struct {
	Method string
	URL    string
	// Payload is JSON encoded into the body for POST, PUT and PATCH. For
	// other methods it is merged into the query string and must be
	// url.Values, map[string]string, map[string]any or [][2]string.
	Payload any
	Headers map[string]string
}

// fetchInit is the RequestInit handed to window.fetch.
type fetchInit struct {
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	Credentials string            `json:"credentials"`
	Cache       string            `json:"cache"`
	Body        *string           `json:"body,omitempty"`
}

// Fetch runs req through the page's fetch and returns the result.
func (w *Window) Fetch(ctx context.Context, req FetchRequest) (*response.Response, error) {
	fid := id.NewFetchID()
	logger := logging.OrNop(w.logger).With(zap.String("fetch_id", fid.String()))

	target, init, err := planFetch(req)
	if err != nil {
		return nil, err
	}
	script, err := renderFetch(target, init)
	if err != nil {
		return nil, err
	}

	logger.Debug("In-page fetch", zap.String("method", init.Method), zap.String("url", target))
	obj, err := w.page.Context(ctx).Eval(script)
	if err != nil {
		return nil, fmt.Errorf("in-page fetch %s %s: %w", init.Method, target, err)
	}
	raw, err := obj.Value.MarshalJSON()
	if err != nil {
		return nil, err
	}
	rec, err := decodeFetch(raw)
	if err != nil {
		return nil, err
	}

	resp := response.FromPageFetch(rec)
	w.metrics.RecordFetch(response.SourcePage.String(), resp.StatusCode)
	logger.Debug("In-page fetch done", zap.Int("status", resp.StatusCode), zap.String("reason", resp.Reason))
	return resp, nil
}

func decodeFetch(raw []byte) (response.FetchResult, error) {
	var rec response.FetchResult
	if err := sonic.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("decode in-page fetch result: %w", err)
	}
	return rec, nil
}

func hasBody(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

// planFetch resolves the final URL and RequestInit for req.
func planFetch(req FetchRequest) (string, fetchInit, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = "GET"
	}
	init := fetchInit{
		Method:      method,
		Headers:     map[string]string{},
		Credentials: "include",
		Cache:       "no-store",
	}
	maps.Copy(init.Headers, req.Headers)

	if hasBody(method) {
		init.Headers["Content-Type"] = "application/json"
		if req.Payload != nil {
			body, err := sonic.MarshalString(req.Payload)
			if err != nil {
				return "", init, fmt.Errorf("encode fetch payload: %w", err)
			}
			init.Body = &body
		}
		return req.URL, init, nil
	}

	if req.Payload == nil {
		return req.URL, init, nil
	}
	pairs, err := queryPairs(req.Payload)
	if err != nil {
		return "", init, err
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", init, fmt.Errorf("parse fetch url: %w", err)
	}
	// payload first, then whatever the URL already carried
	var parts []string
	for _, kv := range pairs {
		parts = append(parts, url.QueryEscape(kv[0])+"="+url.QueryEscape(kv[1]))
	}
	if u.RawQuery != "" {
		parts = append(parts, u.RawQuery)
	}
	u.RawQuery = strings.Join(parts, "&")
	return u.String(), init, nil
}

func queryPairs(payload any) ([][2]string, error) {
	var out [][2]string
	switch p := payload.(type) {
	case [][2]string:
		out = append(out, p...)
	case url.Values:
		for _, k := range slices.Sorted(maps.Keys(p)) {
			for _, v := range p[k] {
				out = append(out, [2]string{k, v})
			}
		}
	case map[string]string:
		for _, k := range slices.Sorted(maps.Keys(p)) {
			out = append(out, [2]string{k, p[k]})
		}
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(p)) {
			out = append(out, [2]string{k, fmt.Sprint(p[k])})
		}
	default:
		return nil, fmt.Errorf("unsupported query payload %T", payload)
	}
	return out, nil
}

// fetchScript resolves to the record response.FetchResult decodes: either
// the full response or an error sentinel when fetch itself rejected. The
// body is decoded in the page using the response charset.
const fetchScript = `async () => {
	const url = %s;
	const init = %s;
	let resp;
	try {
		resp = await fetch(url, init);
	} catch (e) {
		return {url: url, status: 0, error: {name: String(e && e.name), message: String(e && e.message)}};
	}
	const bytes = new Uint8Array(await resp.arrayBuffer());
	const type = resp.headers.get("content-type") || "";
	const m = /charset=([^;]+)/i.exec(type);
	let text;
	try {
		text = new TextDecoder(m ? m[1].trim() : "utf-8").decode(bytes);
	} catch (e) {
		text = new TextDecoder().decode(bytes);
	}
	let json = null;
	try {
		json = JSON.parse(text);
	} catch (e) {}
	return {
		url: resp.url,
		status: resp.status,
		reason: resp.statusText,
		headers: Array.from(resp.headers.entries()),
		body: Array.from(bytes),
		text: text,
		json: json,
	};
}`

// renderFetch substitutes the JSON-encoded URL and init into the script
// and makes sure the result still parses before it reaches the browser.
func renderFetch(target string, init fetchInit) (string, error) {
	u, err := sonic.MarshalString(target)
	if err != nil {
		return "", err
	}
	i, err := sonic.MarshalString(init)
	if err != nil {
		return "", err
	}
	script := fmt.Sprintf(fetchScript, u, i)
	if _, err := goja.Compile("fetch.js", "("+script+")", false); err != nil {
		return "", fmt.Errorf("render fetch script: %w", err)
	}
	return script, nil
}
