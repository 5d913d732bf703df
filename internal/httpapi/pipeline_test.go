package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Lllllllleong/catchlog/internal/models"
	"github.com/Lllllllleong/catchlog/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bassReply = "```json\n{\"commonName\":\"Largemouth Bass\",\"scientificName\":\"Micropterus salmoides\",\"family\":\"Centrarchidae\",\"confidence\":\"high\",\"characteristics\":[\"dark lateral stripe\"],\"habitat\":\"warm lakes\",\"averageSize\":\"12-24 in\",\"notes\":\"\"}\n```"

type stubBucket struct {
	objects map[string][]byte
	fetches int
}

func (b *stubBucket) Fetch(_ context.Context, key string) ([]byte, error) {
	b.fetches++
	data, ok := b.objects[key]
	if !ok {
		return nil, models.ErrAssetNotFound
	}
	return data, nil
}

type stubModel struct {
	reply string
	calls int
}

func (m *stubModel) Identify(context.Context, []byte, string) (string, error) {
	m.calls++
	return m.reply, nil
}

type stubWriter struct {
	records []*models.CatchRecord
}

func (w *stubWriter) Create(_ context.Context, rec *models.CatchRecord) (string, error) {
	w.records = append(w.records, rec)
	return "catch-1", nil
}

type pipeline struct {
	bucket  *stubBucket
	model   *stubModel
	writer  *stubWriter
	handler http.Handler
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: uint8(x * 3), B: uint8(y * 4), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	p := &pipeline{
		bucket: &stubBucket{objects: map[string][]byte{"catches/u1/123_fish.jpg": buf.Bytes()}},
		model:  &stubModel{reply: bassReply},
		writer: &stubWriter{},
	}
	fn := services.NewIdentifier(p.bucket, p.model, nil, p.writer, nil, services.IdentifierConfig{
		MaxLongEdge:        32,
		DefaultDisplayName: "Anonymous Angler",
	})
	p.handler = IdentifyHandler(fn, "*")
	return p
}

func (p *pipeline) post(body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/identify", strings.NewReader(body)))
	return rec
}

func TestIdentifyPipelineEndToEnd(t *testing.T) {
	p := newPipeline(t)

	rec := p.post(`{"imageUrl":"catches/u1/123_fish.jpg","imageDownloadUrl":"https://cdn.example.com/catches/u1/123_fish.jpg","userId":"u1","catchDetails":{"location":"Lake Fork","method":"jig"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.IdentifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "catch-1", res.ID)
	name, ok := res.Identification.CommonName()
	require.True(t, ok)
	assert.Equal(t, "Largemouth Bass", name)

	require.Len(t, p.writer.records, 1)
	stored := p.writer.records[0]
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, "Anonymous Angler", stored.UserDisplayName)
	assert.Equal(t, map[string]any{"location": "Lake Fork", "method": "jig"}, stored.CatchDetails)
	assert.Equal(t, 1, p.bucket.fetches)
	assert.Equal(t, 1, p.model.calls)
}

func TestIdentifyPipelineRejectsBeforeExternalCalls(t *testing.T) {
	for name, body := range map[string]string{
		"missing userId":   `{"imageUrl":"catches/u1/123_fish.jpg","catchDetails":{}}`,
		"missing imageUrl": `{"userId":"u1"}`,
		"blank userId":     `{"imageUrl":"catches/u1/123_fish.jpg","userId":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			p := newPipeline(t)

			rec := p.post(body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, p.bucket.fetches)
			assert.Zero(t, p.model.calls)
			assert.Empty(t, p.writer.records)
		})
	}
}

func TestIdentifyPipelineWrongMethodHasNoSideEffects(t *testing.T) {
	p := newPipeline(t)

	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/identify?imageUrl=catches/u1/123_fish.jpg&userId=u1", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, p.bucket.fetches)
	assert.Zero(t, p.model.calls)
	assert.Empty(t, p.writer.records)
}

func TestIdentifyPipelineMissingAssetIsGeneric500(t *testing.T) {
	p := newPipeline(t)

	rec := p.post(`{"imageUrl":"catches/u1/nope.jpg","userId":"u1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to identify fish", decodeError(t, rec).Error)
	assert.Zero(t, p.model.calls)
	assert.Empty(t, p.writer.records)
}
