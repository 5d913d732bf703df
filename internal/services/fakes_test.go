package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"maps"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/v4/auth"
	"github.com/Lllllllleong/catchlog/internal/models"
	"github.com/stretchr/testify/require"
)

// testJPEG returns an encoded w×h image.
func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// oversizedGIF is a bare GIF header declaring 30000×30000 pixels.
func oversizedGIF() []byte {
	const side = 30000
	return []byte{'G', 'I', 'F', '8', '9', 'a', side & 0xff, side >> 8, side & 0xff, side >> 8, 0, 0, 0}
}

type fakeAssets struct {
	mu        sync.Mutex
	objects   map[string][]byte
	fetches   int
	deletes   []string
	deleteErr error
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{objects: map[string][]byte{}}
}

func (a *fakeAssets) Fetch(_ context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetches++
	data, ok := a.objects[key]
	if !ok {
		return nil, models.ErrAssetNotFound
	}
	return data, nil
}

func (a *fakeAssets) Put(_ context.Context, key, _ string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.objects[key]; ok {
		return models.ErrAssetExists
	}
	a.objects[key] = data
	return nil
}

func (a *fakeAssets) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deletes = append(a.deletes, key)
	if a.deleteErr != nil {
		return a.deleteErr
	}
	if _, ok := a.objects[key]; !ok {
		return models.ErrAssetNotFound
	}
	delete(a.objects, key)
	return nil
}

func (a *fakeAssets) PublicURL(key string) string {
	return "https://storage.googleapis.com/test-bucket/" + key
}

func (a *fakeAssets) KeyFromURL(raw string) (string, bool) {
	const prefix = "https://storage.googleapis.com/test-bucket/"
	if strings.HasPrefix(raw, prefix) {
		return strings.TrimPrefix(raw, prefix), true
	}
	return "", false
}

type fakeModel struct {
	reply      string
	err        error
	calls      int
	mediaTypes []string
	images     [][]byte
}

func (m *fakeModel) Identify(_ context.Context, image []byte, mediaType string) (string, error) {
	m.calls++
	m.mediaTypes = append(m.mediaTypes, mediaType)
	m.images = append(m.images, image)
	return m.reply, m.err
}

type fakeProfiles struct {
	mu    sync.Mutex
	users map[string]*auth.UserRecord
	err   error
	calls map[string]int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{users: map[string]*auth.UserRecord{}, calls: map[string]int{}}
}

func (p *fakeProfiles) add(uid, name, photo string) {
	p.users[uid] = &auth.UserRecord{UserInfo: &auth.UserInfo{UID: uid, DisplayName: name, PhotoURL: photo}}
}

func (p *fakeProfiles) GetUser(_ context.Context, uid string) (*auth.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[uid]++
	if p.err != nil {
		return nil, p.err
	}
	u, ok := p.users[uid]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

// fakeCatches is an in-memory catches collection. Timestamps come from a
// counter so ordering is deterministic. Records cross the fake's boundary as
// copies, maps included, the way documents do with a real store.
type fakeCatches struct {
	mu        sync.Mutex
	docs      map[string]*models.CatchRecord
	nextID    int
	clock     time.Time
	createErr error
	updateErr error
	creates   int
}

func newFakeCatches() *fakeCatches {
	return &fakeCatches{docs: map[string]*models.CatchRecord{}, clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeCatches) Create(_ context.Context, rec *models.CatchRecord) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creates++
	if c.createErr != nil {
		return "", c.createErr
	}
	c.nextID++
	id := "catch-" + strconv.Itoa(c.nextID)
	c.clock = c.clock.Add(time.Minute)
	stored := cloneRecord(rec)
	stored.ID = id
	stored.Timestamp = c.clock
	c.docs[id] = stored
	return id, nil
}

func (c *fakeCatches) Get(_ context.Context, id string) (*models.CatchRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func cloneRecord(rec *models.CatchRecord) *models.CatchRecord {
	cp := *rec
	cp.Identification = maps.Clone(rec.Identification)
	cp.CatchDetails = maps.Clone(rec.CatchDetails)
	return &cp
}

func (c *fakeCatches) list(match func(*models.CatchRecord) bool) []models.CatchRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.CatchRecord
	for _, rec := range c.docs {
		if match(rec) {
			out = append(out, *cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (c *fakeCatches) ListByUser(_ context.Context, userID string) ([]models.CatchRecord, error) {
	return c.list(func(r *models.CatchRecord) bool { return r.UserID == userID }), nil
}

func (c *fakeCatches) ListAll(_ context.Context) ([]models.CatchRecord, error) {
	return c.list(func(*models.CatchRecord) bool { return true }), nil
}

func (c *fakeCatches) ListMissingProfile(_ context.Context) ([]models.CatchRecord, error) {
	return c.list(func(r *models.CatchRecord) bool { return r.UserDisplayName == "" }), nil
}

// Update applies dotted field paths the way Firestore does for the fields
// this application writes.
func (c *fakeCatches) Update(_ context.Context, id string, updates []firestore.Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateErr != nil {
		return c.updateErr
	}
	rec, ok := c.docs[id]
	if !ok {
		return models.ErrNotFound
	}
	for _, u := range updates {
		head, field, nested := strings.Cut(u.Path, ".")
		switch {
		case head == "catchDetails" && nested:
			if rec.CatchDetails == nil {
				rec.CatchDetails = map[string]any{}
			}
			rec.CatchDetails[field] = u.Value
		case head == "identification" && nested:
			if rec.Identification == nil {
				rec.Identification = models.Identification{}
			}
			rec.Identification[field] = u.Value
		case head == "userDisplayName":
			rec.UserDisplayName = u.Value.(string)
		case head == "userPhotoURL":
			rec.UserPhotoURL = u.Value.(string)
		default:
			return errors.New("unexpected update path " + u.Path)
		}
	}
	return nil
}

func (c *fakeCatches) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, id)
	return nil
}
