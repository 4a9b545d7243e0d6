package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	return img
}

func TestAnalyzeSubmitsJPEGAndDecodesResult(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"confidence_level":73,"attention_level":55,"thinking_level":12,"isDeviceDetected":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	res, err := c.Analyze(context.Background(), testFrame())
	require.NoError(t, err)

	assert.Equal(t, 73, res.ConfidenceLevel)
	assert.Equal(t, 55, res.AttentionLevel)
	assert.Equal(t, 12, res.ThinkingLevel)
	assert.True(t, res.IsDeviceDetected)

	// The body must carry a decodable JPEG of the submitted frame.
	raw, err := base64.StdEncoding.DecodeString(got.ImageBase64)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
}

func TestAnalyzeDefaultsMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"confidence_level":73}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	res, err := c.Analyze(context.Background(), testFrame())
	require.NoError(t, err)

	assert.Equal(t, 73, res.ConfidenceLevel)
	assert.Zero(t, res.AttentionLevel)
	assert.Zero(t, res.ThinkingLevel)
	assert.False(t, res.IsDeviceDetected)
}

func TestAnalyzeNonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Analyze(context.Background(), testFrame())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestAnalyzeHonoursContextCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so net/http starts its background read; without
		// it the client disconnect is never noticed and r.Context() is
		// never cancelled, deadlocking srv.Close.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	c := NewClient(srv.URL, time.Minute)
	go func() {
		_, err := c.Analyze(ctx, testFrame())
		errCh <- err
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Analyze did not return after cancel")
	}
}

func TestAnalyzeGarbageResponseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Analyze(context.Background(), testFrame())
	require.Error(t, err)
}
