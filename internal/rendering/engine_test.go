package rendering

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEngine_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		switch {
		case strings.Contains(string(body), "broken"):
			w.Header().Set(headerDiagramError, "Syntax Error?")
			w.Header().Set(headerDiagramErrorLine, "2")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("<svg>error image</svg>"))
		case r.URL.Path == "/plantuml/svg":
			w.Header().Set("Content-Type", "image/svg+xml")
			_, _ = w.Write([]byte("<svg>ok</svg>"))
		case r.URL.Path == "/plantuml/png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	eng := NewHTTPEngine(server.URL+"/plantuml/", 5*time.Second)
	ctx := context.Background()

	t.Run("svg", func(t *testing.T) {
		var buf bytes.Buffer
		desc, err := eng.Generate(ctx, validCode, FormatSVG, &buf)
		require.NoError(t, err)
		assert.Equal(t, "OK (svg)", desc)
		assert.Equal(t, "<svg>ok</svg>", buf.String())
	})

	t.Run("png", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := eng.Generate(ctx, validCode, FormatPNG, &buf)
		require.NoError(t, err)
		assert.Equal(t, "\x89PNG", buf.String())
	})

	t.Run("syntax error header becomes description", func(t *testing.T) {
		var buf bytes.Buffer
		desc, err := eng.Generate(ctx, "@startuml\nbroken\n@enduml", FormatSVG, &buf)
		require.NoError(t, err)
		assert.Equal(t, "Error line 2: Syntax Error?", desc)
		assert.Zero(t, buf.Len())
	})

	t.Run("unexpected status", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := eng.Generate(ctx, validCode, Format("txt"), &buf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

func TestHTTPEngine_Unreachable(t *testing.T) {
	eng := NewHTTPEngine("http://127.0.0.1:1", time.Second)

	var buf bytes.Buffer
	_, err := eng.Generate(context.Background(), validCode, FormatSVG, &buf)
	require.Error(t, err)

	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestGateway_WithHTTPEngine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`))
	}))
	defer server.Close()

	svg, err := NewGateway(NewHTTPEngine(server.URL, time.Second)).RenderSVG(context.Background(), validCode)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, "<svg")
}
