package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/MuhamedUsman/postit/internal/config"
	"github.com/MuhamedUsman/postit/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	collector *server.Server
	url       string
	image     string
	content   []byte
	cfg       string
}

func newHarness(t *testing.T) *harness {
	for _, k := range []string{config.EnvURL, config.EnvFile, config.EnvAddr, config.EnvSaveDir} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	s := server.New(":0", filepath.Join(dir, "received"))
	require.NoError(t, os.MkdirAll(s.SaveDir, 0o750))
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)

	content := []byte("\xff\xd8\xff\xe0 image bytes \x00\xff")
	image := filepath.Join(dir, "input.jpg")
	require.NoError(t, os.WriteFile(image, content, 0o600))
	return &harness{
		collector: s,
		url:       srv.URL + server.UploadPath,
		image:     image,
		content:   content,
		cfg:       filepath.Join(dir, "config.toml"),
	}
}

func (h *harness) run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	base := []string{"-file", h.image, "-url", h.url}
	if h.cfg != "" {
		base = append(base, "-config", h.cfg)
	}
	code = run(testContext(t), append(base, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_DefaultHeaders(t *testing.T) {
	h := newHarness(t)
	code, stdout, stderr := h.run(t)
	assert.Zero(t, code)
	assert.Empty(t, stderr, "a successful upload must not write diagnostics")
	assert.Contains(t, stdout, `"image": "img.jpg"`)

	saved, err := os.ReadFile(filepath.Join(h.collector.SaveDir, config.DefaultImageLabel))
	require.NoError(t, err)
	assert.Equal(t, h.content, saved)

	recorded := h.collector.Recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, "100-continue", recorded[0].Header.Get("Expect"))
}

func TestRun_NoExpectHeader(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run(t, noExpectArg)
	assert.Zero(t, code)
	assert.Empty(t, stderr)

	recorded := h.collector.Recorded()
	require.Len(t, recorded, 1)
	_, present := recorded[0].Header["Expect"]
	assert.False(t, present, "Expect header must be omitted")
}

func TestRun_OtherArgumentIgnored(t *testing.T) {
	h := newHarness(t)
	code, _, _ := h.run(t, "something-else")
	assert.Zero(t, code)

	recorded := h.collector.Recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, "100-continue", recorded[0].Header.Get("Expect"))
}

func TestRun_TransferFailure(t *testing.T) {
	h := newHarness(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	h.url = "http://" + addr + server.UploadPath

	code, stdout, stderr := h.run(t)
	assert.Zero(t, code, "exit code stays 0 without -strict")
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Upload failed")
	assert.Contains(t, stderr, addr)

	code, _, _ = h.run(t, "-strict")
	assert.Equal(t, 1, code)
}

func TestRun_NonSuccessStatus(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	h.url = srv.URL + server.UploadPath

	code, stdout, stderr := h.run(t)
	assert.Zero(t, code, "exit code stays 0 without -strict")
	assert.Empty(t, stdout, "an error body must not be reported as a response")
	assert.Contains(t, stderr, "Upload failed")
	assert.Contains(t, stderr, "500")

	code, _, _ = h.run(t, "-strict")
	assert.Equal(t, 1, code)
}

func TestRun_WithoutConfigFile(t *testing.T) {
	tests := []struct {
		name string
		home func(t *testing.T) string
	}{
		{"unresolvable config dir", func(t *testing.T) string { return "" }},
		{"empty config dir", func(t *testing.T) string { return t.TempDir() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.cfg = ""
			home := tt.home(t)
			// os.UserConfigDir resolves from these depending on the platform
			t.Setenv("XDG_CONFIG_HOME", home)
			t.Setenv("HOME", home)
			t.Setenv("AppData", home)

			code, _, stderr := h.run(t, "-strict")
			assert.Zero(t, code)
			assert.Empty(t, stderr)
			assert.Len(t, h.collector.Recorded(), 1)
			if home != "" {
				assert.NoFileExists(t, filepath.Join(home, ".postit", "config.toml"), "the harness must not write config")
				assert.NoDirExists(t, filepath.Join(home, ".postit"))
			}
		})
	}
}

func TestRun_MissingFile(t *testing.T) {
	h := newHarness(t)
	h.image = filepath.Join(t.TempDir(), "missing.jpg")

	code, _, stderr := h.run(t)
	assert.Zero(t, code)
	assert.Contains(t, stderr, "Reading image")
	assert.Empty(t, h.collector.Recorded(), "nothing must be sent when the image cannot be read")
}

func TestRun_BadFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(testContext(t), []string{"-no-such-flag"}, &out, &errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "Usage: postit")
}

// testContext stands in for testing.T.Context (Go 1.24+) on older toolchains:
// the returned context is canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
