package rendering

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

func (f Format) label() string { return strings.ToUpper(string(f)) }

// Engine compiles PlantUML source into the requested format, writing the encoded
// image to sink. The returned description mirrors the engine's status line; a
// description containing "Error" means the source was rejected even if err is nil.
type Engine interface {
	Generate(ctx context.Context, source string, format Format, sink io.Writer) (string, error)
}

const (
	headerDiagramError     = "X-PlantUML-Diagram-Error"
	headerDiagramErrorLine = "X-PlantUML-Diagram-Error-Line"
)

// HTTPEngine talks to a PlantUML server (plantuml/plantuml-server) which accepts
// the raw source as a POST body on /svg and /png.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEngine creates an engine for the PlantUML server at baseURL.
func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *HTTPEngine) Generate(ctx context.Context, source string, format Format, sink io.Writer) (string, error) {
	reqURL := e.baseURL + "/" + string(format)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(source))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &IOError{Op: "plantuml server request", Err: err}
	}
	defer resp.Body.Close()

	// The server still answers with an error image; only the header matters here.
	if msg := strings.TrimSpace(resp.Header.Get(headerDiagramError)); msg != "" {
		_, _ = io.Copy(io.Discard, resp.Body)
		desc := "Error"
		if line := strings.TrimSpace(resp.Header.Get(headerDiagramErrorLine)); line != "" {
			desc += " line " + line
		}
		return desc + ": " + msg, nil
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("plantuml server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if _, err := io.Copy(sink, resp.Body); err != nil {
		return "", &IOError{Op: "read plantuml output", Err: err}
	}

	return fmt.Sprintf("OK (%s)", format), nil
}
