/* Copyright 2025 Itsypad Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package client provides interfaces for interacting with the itsypad server
// and the data structures for responses
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nickustinov/itsypad/pkg/cli/context"
	"github.com/nickustinov/itsypad/pkg/cli/log"
	"github.com/nickustinov/itsypad/pkg/document"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrInvalidLogin is an error for invalid credentials for login
var ErrInvalidLogin = errors.New("wrong credentials")

// ErrContentTypeMismatch is an error for an unexpected response content type
var ErrContentTypeMismatch = errors.New("content type mismatch")

// HTTPError represents an HTTP error response from the server
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf(`response %d "%s"`, e.StatusCode, e.Message)
}

// IsConflict returns true if the error is a 409 Conflict error
func (e *HTTPError) IsConflict() bool {
	return e.StatusCode == 409
}

// IsNotFound returns true if the error is a 404 Not Found error
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

var contentTypeApplicationJSON = "application/json"
var contentTypeNone = ""

// requestOptions contains options for requests
type requestOptions struct {
	HTTPClient *http.Client
	// ExpectedContentType is the Content-Type that the client is expecting from the server
	ExpectedContentType *string
}

const (
	// clientRateLimitPerSecond is the max requests per second the client will make
	clientRateLimitPerSecond = 50
	// clientRateLimitBurst is the burst capacity for rate limiting
	clientRateLimitBurst = 100
)

// rateLimitedTransport wraps an http.RoundTripper with rate limiting
type rateLimitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Wait for rate limiter to allow the request
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.transport.RoundTrip(req)
}

// NewRateLimitedHTTPClient creates an HTTP client with rate limiting
func NewRateLimitedHTTPClient() *http.Client {
	// Calculate interval from rate: 1 second / requests per second
	interval := time.Second / time.Duration(clientRateLimitPerSecond)

	transport := &rateLimitedTransport{
		transport: http.DefaultTransport,
		limiter:   rate.NewLimiter(rate.Every(interval), clientRateLimitBurst),
	}
	return &http.Client{
		Transport: transport,
	}
}

func getHTTPClient(ctx context.PadCtx, options *requestOptions) *http.Client {
	if options != nil && options.HTTPClient != nil {
		return options.HTTPClient
	}

	if ctx.HTTPClient != nil {
		return ctx.HTTPClient
	}

	return &http.Client{}
}

func getExpectedContentType(options *requestOptions) string {
	if options != nil && options.ExpectedContentType != nil {
		return *options.ExpectedContentType
	}

	return contentTypeApplicationJSON
}

func getReq(ctx context.PadCtx, path, method, body string) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s%s", ctx.APIEndpoint, path)
	req, err := http.NewRequest(method, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "constructing http request")
	}

	req.Header.Set("CLI-Version", ctx.Version)

	if ctx.SessionKey != "" {
		credential := fmt.Sprintf("Bearer %s", ctx.SessionKey)
		req.Header.Set("Authorization", credential)
	}

	return req, nil
}

// checkRespErr checks if the given http response indicates an error. It returns a boolean indicating
// if the response is an error, and a decoded error message.
func checkRespErr(res *http.Response) error {
	if res.StatusCode < 400 {
		return nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "server responded with %d but client could not read the response body", res.StatusCode)
	}

	bodyStr := string(body)
	return &HTTPError{
		StatusCode: res.StatusCode,
		Message:    strings.TrimRight(bodyStr, "\n"),
	}
}

func checkContentType(res *http.Response, options *requestOptions) error {
	expected := getExpectedContentType(options)

	got := res.Header.Get("Content-Type")
	if got != expected {
		return errors.Wrapf(ErrContentTypeMismatch, "got: '%s' want: '%s'. Did you configure your endpoint correctly?", got, expected)
	}

	return nil
}

// doReq does a http request to the given path in the api endpoint
func doReq(ctx context.PadCtx, method, path, body string, options *requestOptions) (*http.Response, error) {
	req, err := getReq(ctx, path, method, body)
	if err != nil {
		return nil, errors.Wrap(err, "getting request")
	}

	log.Debug("HTTP %s %s\n", method, path)

	hc := getHTTPClient(ctx, options)
	res, err := hc.Do(req)
	if err != nil {
		return res, errors.Wrap(err, "making http request")
	}

	log.Debug("HTTP %d %s\n", res.StatusCode, res.Status)

	if err = checkRespErr(res); err != nil {
		return res, errors.Wrap(err, "server responded with an error")
	}

	if err = checkContentType(res, options); err != nil {
		return res, errors.Wrap(err, "unexpected Content-Type")
	}

	return res, nil
}

// doAuthorizedReq does a http request to the given path in the api endpoint as a user,
// with the appropriate headers. The given path should include the preceding slash.
func doAuthorizedReq(ctx context.PadCtx, method, path, body string, options *requestOptions) (*http.Response, error) {
	if ctx.SessionKey == "" {
		return nil, errors.New("no access key found")
	}

	return doReq(ctx, method, path, body, options)
}

// GetSyncStateResp is the response from the get sync state endpoint
type GetSyncStateResp struct {
	MaxStamp    int64 `json:"max_stamp"`
	CurrentTime int64 `json:"current_time"`
}

// GetSyncState gets the sync state response from the server. It doubles as
// the access key check during login.
func GetSyncState(ctx context.PadCtx) (GetSyncStateResp, error) {
	var ret GetSyncStateResp

	res, err := doAuthorizedReq(ctx, "GET", "/api/v1/sync/state", "", nil)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized {
			return ret, ErrInvalidLogin
		}
		return ret, errors.Wrap(err, "making http request")
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return ret, errors.Wrap(err, "reading the response body")
	}

	if err = json.Unmarshal(body, &ret); err != nil {
		return ret, errors.Wrap(err, "unmarshalling the payload")
	}

	return ret, nil
}

// GetBlob fetches the blob stored under the key. The second return value is
// false when the key has never been written.
func GetBlob(ctx context.PadCtx, key string) ([]byte, bool, error) {
	path := fmt.Sprintf("/api/v1/kv/%s", url.PathEscape(key))
	res, err := doAuthorizedReq(ctx, "GET", path, "", nil)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "making http request")
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, false, errors.Wrap(err, "reading the response body")
	}

	return body, true, nil
}

// PutBlob stores the blob under the key, overwriting any previous value
func PutBlob(ctx context.PadCtx, key string, value []byte) error {
	path := fmt.Sprintf("/api/v1/kv/%s", url.PathEscape(key))
	_, err := doAuthorizedReq(ctx, "PUT", path, string(value), nil)
	if err != nil {
		return errors.Wrap(err, "making http request")
	}

	return nil
}

// DeleteBlob removes the blob stored under the key
func DeleteBlob(ctx context.PadCtx, key string) error {
	path := fmt.Sprintf("/api/v1/kv/%s", url.PathEscape(key))
	opts := requestOptions{ExpectedContentType: &contentTypeNone}
	_, err := doAuthorizedReq(ctx, "DELETE", path, "", &opts)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil
		}
		return errors.Wrap(err, "making http request")
	}

	return nil
}

// RespRecord is a record in responses from the records endpoints
type RespRecord struct {
	Doc   document.Document `json:"doc"`
	Stamp int64             `json:"stamp"`
}

// GetRecordsResp is the response from the record change feed endpoint
type GetRecordsResp struct {
	Records  []RespRecord `json:"records"`
	Expunged []string     `json:"expunged"`
	MaxStamp int64        `json:"max_stamp"`
}

// GetRecords fetches the record changes with stamps greater than after
func GetRecords(ctx context.PadCtx, kind document.Kind, after int64) (GetRecordsResp, error) {
	v := url.Values{}
	v.Set("kind", string(kind))
	v.Set("after", strconv.FormatInt(after, 10))

	path := fmt.Sprintf("/api/v1/records?%s", v.Encode())
	res, err := doAuthorizedReq(ctx, "GET", path, "", nil)
	if err != nil {
		return GetRecordsResp{}, errors.Wrap(err, "making http request")
	}

	var resp GetRecordsResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return GetRecordsResp{}, errors.Wrap(err, "decoding payload")
	}

	return resp, nil
}

// PutRecordPayload is a payload for writing a record
type PutRecordPayload struct {
	Doc       document.Document `json:"doc"`
	PrevStamp int64             `json:"prev_stamp"`
}

// PutRecordResp is the response from a record write
type PutRecordResp struct {
	Stamp int64 `json:"stamp"`
}

// PutRecord writes a record, asserting that prevStamp is still the latest
// server stamp for it. On a conflict it returns the current server record
// instead of an error.
func PutRecord(ctx context.PadCtx, kind document.Kind, doc document.Document, prevStamp int64) (int64, *RespRecord, error) {
	payload := PutRecordPayload{
		Doc:       doc,
		PrevStamp: prevStamp,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, errors.Wrap(err, "marshaling payload")
	}

	endpoint := fmt.Sprintf("/api/v1/records/%s/%s", string(kind), doc.UUID)
	res, err := doAuthorizedReq(ctx, "PUT", endpoint, string(b), nil)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.IsConflict() {
			var current RespRecord
			if err := json.Unmarshal([]byte(httpErr.Message), &current); err != nil {
				return 0, nil, errors.Wrap(err, "decoding conflicting record")
			}
			return 0, &current, nil
		}
		return 0, nil, errors.Wrap(err, "making http request")
	}

	var resp PutRecordResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return 0, nil, errors.Wrap(err, "decoding payload")
	}

	return resp.Stamp, nil, nil
}

// DeleteRecord removes a record in the server. Deleting an absent record is
// not an error.
func DeleteRecord(ctx context.PadCtx, kind document.Kind, uuid string) error {
	endpoint := fmt.Sprintf("/api/v1/records/%s/%s", string(kind), uuid)
	opts := requestOptions{ExpectedContentType: &contentTypeNone}
	_, err := doAuthorizedReq(ctx, "DELETE", endpoint, "", &opts)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil
		}
		return errors.Wrap(err, "making http request")
	}

	return nil
}

// WipeRecords removes all of the kind's records in the server
func WipeRecords(ctx context.PadCtx, kind document.Kind) error {
	v := url.Values{}
	v.Set("kind", string(kind))

	path := fmt.Sprintf("/api/v1/records?%s", v.Encode())
	opts := requestOptions{ExpectedContentType: &contentTypeNone}
	_, err := doAuthorizedReq(ctx, "DELETE", path, "", &opts)
	if err != nil {
		return errors.Wrap(err, "making http request")
	}

	return nil
}
