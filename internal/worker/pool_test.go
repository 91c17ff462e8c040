package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
)

type update struct {
	snapshot string
	trackID  string
	features domain.AudioFeatures
}

type mockRepo struct {
	mu      sync.Mutex
	updates []update
	err     error
}

func (m *mockRepo) UpdateTrackFeatures(ctx context.Context, snapshot, trackID string, features domain.AudioFeatures) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.updates = append(m.updates, update{snapshot, trackID, features})
	return nil
}

func stubAnalyzer(t *testing.T, fn func(ctx context.Context, url string) (float64, error)) {
	t.Helper()
	orig := AnalyzePreviewFunc
	AnalyzePreviewFunc = fn
	t.Cleanup(func() { AnalyzePreviewFunc = orig })
}

func TestPool_UpdatesEnergyOnly(t *testing.T) {
	stubAnalyzer(t, func(ctx context.Context, url string) (float64, error) {
		if url == "https://p/bad" {
			return 0, errors.New("decode failed")
		}
		return 0.42, nil
	})

	repo := &mockRepo{}
	log, hook := test.NewNullLogger()
	p := NewPool(2, 10, log)
	p.Start(repo)

	feats := domain.AudioFeatures{Energy: 0.9, Tempo: 120, Valence: 0.3, Loudness: -8, Danceability: 0.5}
	p.Enqueue("snap", domain.Track{ID: "t1", PreviewURL: "https://p/t1", Features: feats})
	p.Enqueue("snap", domain.Track{ID: "t2", PreviewURL: "https://p/bad", Features: feats})
	p.Enqueue("snap", domain.Track{ID: "t3", Features: feats})
	p.Stop()

	if len(repo.updates) != 1 {
		t.Fatalf("expected 1 update, got %+v", repo.updates)
	}
	got := repo.updates[0]
	want := feats
	want.Energy = 0.42
	if got.snapshot != "snap" || got.trackID != "t1" || got.features != want {
		t.Fatalf("update: got %+v, want t1 with %+v", got, want)
	}

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Data["track_id"] == "t2" && e.Message == "preview analysis failed" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected analysis failure to be logged")
	}
}

func TestPool_RepoErrorIsLogged(t *testing.T) {
	stubAnalyzer(t, func(ctx context.Context, url string) (float64, error) { return 0.5, nil })

	repo := &mockRepo{err: domain.ErrNotFound}
	log, hook := test.NewNullLogger()
	p := NewPool(1, 1, log)
	p.Start(repo)
	p.Enqueue("snap", domain.Track{ID: "gone", PreviewURL: "https://p/gone"})
	p.Stop()

	if last := hook.LastEntry(); last == nil || last.Message != "failed to update track features" {
		t.Fatalf("expected update failure log, got %+v", last)
	}
}

func TestPool_DropsWhenFullOrStopped(t *testing.T) {
	repo := &mockRepo{}
	log, hook := test.NewNullLogger()
	// not started: the single slot fills and the next job is dropped
	p := NewPool(0, 0, log)
	p.Submit(Job{TrackID: "a"})
	p.Submit(Job{TrackID: "b"})
	if last := hook.LastEntry(); last == nil || last.Message != "queue full, dropping job" {
		t.Fatalf("expected drop on full queue, got %+v", last)
	}

	stubAnalyzer(t, func(ctx context.Context, url string) (float64, error) { return 0.5, nil })
	p.Start(repo)
	p.Stop()
	p.Stop()
	p.Submit(Job{TrackID: "c"})
	if last := hook.LastEntry(); last == nil || last.Message != "pool stopped, dropping job" {
		t.Fatalf("expected drop after stop, got %+v", last)
	}
}

func pcm(samples ...int16) []byte {
	var buf bytes.Buffer
	for _, s := range samples {
		_ = binary.Write(&buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

func TestRMSEnergy(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    float64
		wantErr bool
	}{
		{name: "silence", data: pcm(0, 0, 0, 0), want: 0},
		{name: "full scale negative", data: pcm(-32768, -32768), want: 1},
		{name: "half scale", data: pcm(16384, -16384, 16384, -16384), want: 0.5},
		{name: "empty", data: nil, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := rmsEnergy(bytes.NewReader(tc.data))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err: got %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("energy: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAnalyzePreview_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("not an mp3"))
	}))
	defer srv.Close()

	for _, path := range []string{"/missing", "/garbage"} {
		if _, err := analyzePreview(context.Background(), srv.URL+path); err == nil {
			t.Fatalf("%s: expected error", path)
		}
	}
}
