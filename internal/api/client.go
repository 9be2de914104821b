package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kalambet/rotomdex/internal/pokedex"
)

// DefaultBaseURL points at a locally running lookup backend.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// TopN bounds for analysis requests. Values outside the range are clamped.
const (
	MinTopN = 1
	MaxTopN = 10
)

// RequestError is a non-2xx response from the backend with the
// human-readable message extracted from its body.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// Client communicates with the Pokémon lookup backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the given backend base URL
// (e.g. http://localhost:8000/api/v1).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// NewWithHTTPClient creates a Client with a caller-supplied http.Client,
// used by tests and the MCP layer.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	c := New(baseURL)
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// Image is an in-memory encoded image ready for upload. Callers validate
// it against the shared upload constraints before submitting; the client
// does not re-validate.
type Image struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Analyze submits an image for similarity analysis and returns the ranked
// match list. topN is clamped to [MinTopN, MaxTopN]. Cancellation via ctx
// surfaces as the context's error, not a *RequestError.
func (c *Client) Analyze(ctx context.Context, img Image, topN int) (pokedex.AnalysisResult, error) {
	if topN < MinTopN {
		topN = MinTopN
	} else if topN > MaxTopN {
		topN = MaxTopN
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	filename := img.Filename
	if filename == "" {
		filename = "capture.jpg"
	}
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return pokedex.AnalysisResult{}, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return pokedex.AnalysisResult{}, fmt.Errorf("writing image part: %w", err)
	}
	if err := mw.WriteField("top_n", strconv.Itoa(topN)); err != nil {
		return pokedex.AnalysisResult{}, fmt.Errorf("writing top_n field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return pokedex.AnalysisResult{}, fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze/", &body)
	if err != nil {
		return pokedex.AnalysisResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result pokedex.AnalysisResult
	if err := c.do(req, &result); err != nil {
		return pokedex.AnalysisResult{}, err
	}
	return result, nil
}

// FetchPokemon retrieves the full record for a single Pokémon by id.
func (c *Client) FetchPokemon(ctx context.Context, id int) (pokedex.Pokemon, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/pokemon/%d", c.baseURL, id), nil)
	if err != nil {
		return pokedex.Pokemon{}, err
	}
	var p pokedex.Pokemon
	if err := c.do(req, &p); err != nil {
		return pokedex.Pokemon{}, err
	}
	return p, nil
}

// FetchAllPokemon retrieves the complete Pokédex listing for browsing.
func (c *Client) FetchAllPokemon(ctx context.Context) ([]pokedex.Pokemon, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pokemon/", nil)
	if err != nil {
		return nil, err
	}
	var list []pokedex.Pokemon
	if err := c.do(req, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Context cancellation is wrapped by net/http; unwrap it so
		// callers can discriminate via errors.Is.
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("backend not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(resp),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorBody mirrors the error shapes the backend is known to emit: a
// top-level message, a nested detail object with a message, or detail as
// a plain string.
type errorBody struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// extractErrorMessage pulls a human-readable message out of a non-2xx
// response body, trying message, detail.message, then string detail,
// before falling back to the HTTP status text.
func extractErrorMessage(resp *http.Response) string {
	fallback := resp.Status
	if fallback == "" {
		fallback = http.StatusText(resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fallback
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return fallback
	}
	if body.Message != "" {
		return body.Message
	}
	if len(body.Detail) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body.Detail, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if err := json.Unmarshal(body.Detail, &plain); err == nil && plain != "" {
			return plain
		}
	}
	return fallback
}
