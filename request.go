package noahark

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/matryer/try"

	"github.com/NikosBletsas/NoahArk-v2/api"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

var (
	jsonCheck = regexp.MustCompile("(?i:[application|text]/json)")
)

// TerminalAPI wraps the REST endpoints of the terminal backend.
type TerminalAPI struct {
	cfg     *HTTPConfiguration
	options *Options
}

func newTerminalAPI(options *Options, cfg *HTTPConfiguration) *TerminalAPI {
	return &TerminalAPI{cfg: cfg, options: options}
}

// Change base path to allow switching to mocks
func (c *TerminalAPI) ChangeBasePath(path string) {
	c.cfg.BasePath = strings.TrimSuffix(path, "/")
}

func (c *TerminalAPI) performRequest(
	ctx context.Context,
	path string, method string,
	postBody interface{},
	headerParams map[string]string,
	queryParams url.Values,
) (response *http.Response, body []byte, err error) {
	headerParams["Accept"] = "application/json"

	var httpResponse *http.Response
	var responseBody []byte
	maxAttempts := c.options.MaxRequestRetries

	// This retrying lib works by retrying as long as the bool is true and err is not nil
	// the attempt param is auto-incremented
	err = try.Do(func(attempt int) (bool, error) {
		var err error
		r, err := c.prepareRequest(
			ctx,
			c.cfg.BasePath+path,
			method,
			postBody,
			headerParams,
			queryParams,
		)

		// Don't retry if theres an error preparing the request
		if err != nil {
			return false, err
		}

		httpResponse, err = c.callAPI(r)
		if httpResponse == nil && err == nil {
			err = errors.New("Nil httpResponse")
		}
		if err != nil {
			return attempt < maxAttempts && backoff(ctx, attempt), err
		}
		responseBody, err = io.ReadAll(httpResponse.Body)
		httpResponse.Body.Close()

		if err == nil && httpResponse.StatusCode >= 500 && attempt < maxAttempts {
			err = fmt.Errorf("%s %s: server error %s", method, path, httpResponse.Status)
		}

		if err != nil {
			util.Debugf("%s %s attempt %d failed: %v", method, path, attempt, err)
			return attempt < maxAttempts && backoff(ctx, attempt), err
		}
		return false, nil
	})

	if err != nil {
		return nil, nil, err
	}
	return httpResponse, responseBody, err
}

// backoff waits before the next attempt and reports whether to retry.
func backoff(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(time.Duration(exponentialBackoff(attempt)) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func exponentialBackoff(attempt int) float64 {
	delay := math.Pow(2, float64(attempt)) * 100
	randomSum := delay * 0.2 * rand.Float64()
	return (delay + randomSum)
}

func (c *TerminalAPI) handleError(r *http.Response, body []byte) (err error) {
	newErr := GenericError{
		status: r.StatusCode,
		body:   body,
		error:  r.Status,
	}

	var v api.ErrorResponse
	if len(bytes.TrimSpace(body)) > 0 {
		err = decode(&v, body, r.Header.Get("Content-Type"))
		if err != nil {
			newErr.error = fmt.Sprintf("%s: %s", r.Status, strings.TrimSpace(string(body)))
			return newErr
		}
		if v.Message != "" {
			newErr.error = fmt.Sprintf("%s: %s", r.Status, v.Message)
		}
	}
	newErr.model = v
	return newErr
}

// callAPI do the request.
func (c *TerminalAPI) callAPI(request *http.Request) (*http.Response, error) {
	return c.cfg.HTTPClient.Do(request)
}

// prepareRequest build the request
func (c *TerminalAPI) prepareRequest(
	ctx context.Context,
	path string,
	method string,
	postBody interface{},
	headerParams map[string]string,
	queryParams url.Values,
) (localVarRequest *http.Request, err error) {

	var body *bytes.Buffer

	// Detect postBody type and post.
	if postBody != nil {
		contentType := headerParams["Content-Type"]
		if contentType == "" {
			contentType = detectContentType(postBody)
			headerParams["Content-Type"] = contentType
		}

		body, err = setBody(postBody, contentType)
		if err != nil {
			return nil, err
		}
	}

	// Setup path and query parameters
	builtURL, err := url.Parse(path)
	if err != nil {
		return nil, err
	}

	// Adding Query Param
	query := builtURL.Query()
	for k, v := range queryParams {
		for _, iv := range v {
			query.Add(k, iv)
		}
	}

	// Encode the parameters.
	builtURL.RawQuery = query.Encode()

	// Generate a new request
	if body != nil {
		localVarRequest, err = http.NewRequestWithContext(ctx, method, builtURL.String(), body)
	} else {
		localVarRequest, err = http.NewRequestWithContext(ctx, method, builtURL.String(), nil)
	}
	if err != nil {
		return nil, err
	}

	// add header parameters, if any
	if len(headerParams) > 0 {
		headers := http.Header{}
		for h, v := range headerParams {
			headers.Set(h, v)
		}
		localVarRequest.Header = headers
	}

	// Override request host, if applicable
	if c.cfg.Host != "" {
		localVarRequest.Host = c.cfg.Host
	}

	// Add the user agent to the request.
	localVarRequest.Header.Add("User-Agent", c.cfg.UserAgent)

	for header, value := range c.cfg.DefaultHeader {
		localVarRequest.Header.Add(header, value)
	}

	return localVarRequest, nil
}

// decode unmarshals a response body. Empty bodies leave v untouched.
func decode(v interface{}, b []byte, contentType string) (err error) {
	if v == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if raw, ok := v.(*json.RawMessage); ok && !json.Valid(b) {
		// plain text replies are kept as a JSON string
		*raw, err = json.Marshal(string(b))
		return err
	}
	if err = json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %q response: %w", contentType, err)
	}
	return nil
}

// Set request body from an interface{}
func setBody(body interface{}, contentType string) (bodyBuf *bytes.Buffer, err error) {
	bodyBuf = &bytes.Buffer{}

	if reader, ok := body.(io.Reader); ok {
		_, err = bodyBuf.ReadFrom(reader)
	} else if b, ok := body.([]byte); ok {
		_, err = bodyBuf.Write(b)
	} else if raw, ok := body.(json.RawMessage); ok {
		_, err = bodyBuf.Write(raw)
	} else if s, ok := body.(string); ok {
		_, err = bodyBuf.WriteString(s)
	} else if jsonCheck.MatchString(contentType) {
		err = json.NewEncoder(bodyBuf).Encode(body)
	}

	if err != nil {
		return nil, err
	}

	if bodyBuf.Len() == 0 {
		err = fmt.Errorf("Invalid body type %s\n", contentType)
		return nil, err
	}
	return bodyBuf, nil
}

// detectContentType method is used to figure out `Request.Body` content type for request header
func detectContentType(body interface{}) string {
	contentType := "text/plain; charset=utf-8"
	kind := reflect.TypeOf(body).Kind()

	switch kind {
	case reflect.Struct, reflect.Map, reflect.Ptr:
		contentType = "application/json; charset=utf-8"
	case reflect.String:
		contentType = "text/plain; charset=utf-8"
	default:
		if b, ok := body.([]byte); ok {
			contentType = http.DetectContentType(b)
		} else if kind == reflect.Slice {
			contentType = "application/json; charset=utf-8"
		}
	}

	return contentType
}
