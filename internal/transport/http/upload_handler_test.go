package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	stdhttp "net/http"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/studychat-server/internal/proto"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func uploadRequest(t *testing.T, url string, fields map[string]string, fileName string, content []byte) *stdhttp.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("pdf", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := stdhttp.NewRequest(stdhttp.MethodPost, url+"/upload", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadMissingFields(t *testing.T) {
	env := startTestServer(t, nil)

	cases := map[string]*stdhttp.Request{
		"no file":     uploadRequest(t, env.server.URL, map[string]string{"username": "User1"}, "", nil),
		"no username": uploadRequest(t, env.server.URL, nil, "notes.pdf", samplePDF),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := env.server.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, stdhttp.StatusBadRequest, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "File or username missing.", body["error"])
		})
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	env := startTestServer(t, nil)

	cases := map[string]struct {
		name    string
		content []byte
	}{
		"wrong extension":   {"notes.txt", samplePDF},
		"disguised content": {"notes.pdf", []byte("just some plain text pretending")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := uploadRequest(t, env.server.URL, map[string]string{"username": "User1"}, tc.name, tc.content)
			resp, err := env.server.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, stdhttp.StatusBadRequest, resp.StatusCode)
		})
	}

	msgs, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)

	entries, err := os.ReadDir(env.storage.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadPublishesMessage(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(ctx, t, env)
	readUntil(ctx, t, conn, proto.EventOnlineUsers)

	req := uploadRequest(t, env.server.URL, map[string]string{"username": "User1", "message": "@ai summarize"}, "notes.pdf", samplePDF)
	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)

	var returned proto.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&returned))
	require.NotNil(t, returned.File)
	assert.Equal(t, "notes.pdf", returned.File.Name)
	assert.Equal(t, "/uploads", path.Dir(returned.File.Path))
	require.NotNil(t, returned.Text)
	assert.Equal(t, "@ai summarize", *returned.Text)

	out := readUntil(ctx, t, conn, proto.EventChatMessage)
	var broadcast proto.Message
	require.NoError(t, json.Unmarshal(out.Data, &broadcast))
	assert.Equal(t, returned.ID, broadcast.ID)

	stored, err := os.ReadFile(filepath.Join(env.storage.Dir(), path.Base(returned.File.Path)))
	require.NoError(t, err)
	assert.Equal(t, samplePDF, stored)

	fileResp, err := env.server.Client().Get(env.server.URL + returned.File.Path)
	require.NoError(t, err)
	defer fileResp.Body.Close()
	assert.Equal(t, stdhttp.StatusOK, fileResp.StatusCode)

	// Uploads never address the assistant.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, env.hub.Assistant().Pending())
	msgs, err := env.store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestUploadWithoutMessageHasNullText(t *testing.T) {
	env := startTestServer(t, nil)

	req := uploadRequest(t, env.server.URL, map[string]string{"username": "User2"}, "slides.PDF", samplePDF)
	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "null", string(raw["text"]))
}

func TestUploadStoreFailure(t *testing.T) {
	env := startTestServer(t, failingStore{})

	req := uploadRequest(t, env.server.URL, map[string]string{"username": "User1"}, "notes.pdf", samplePDF)
	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, stdhttp.StatusInternalServerError, resp.StatusCode)

	entries, err := os.ReadDir(env.storage.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "orphaned file should be removed")
}

func TestUploadTooLarge(t *testing.T) {
	env := startTestServer(t, nil)

	big := append(bytes.Clone(samplePDF), bytes.Repeat([]byte("x"), 3<<19)...)
	req := uploadRequest(t, env.server.URL, map[string]string{"username": "User1"}, "big.pdf", big)
	resp, err := env.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, stdhttp.StatusRequestEntityTooLarge, resp.StatusCode)
}
