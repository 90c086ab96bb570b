package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"brandguard/internal/domain"
)

func boolPtr(v bool) *bool { return &v }

func TestNeedsLogos(t *testing.T) {
	cases := []struct {
		name string
		job  domain.Job
		want bool
	}{
		{
			name: "fresh first generation always attempts logos",
			job:  domain.Job{AttemptCount: 0},
			want: true,
		},
		{
			name: "retry of original that had logos",
			job:  domain.Job{AttemptCount: 2, OriginalHadLogos: boolPtr(true)},
			want: true,
		},
		{
			name: "retry of original without logos",
			job:  domain.Job{AttemptCount: 2, OriginalHadLogos: boolPtr(false)},
			want: false,
		},
		{
			name: "color tweak of logo-free original stays logo-free",
			job: domain.Job{
				IsTweak:              true,
				CurrentImageURL:      "https://cdn.example.com/a.png",
				OriginalHadLogos:     boolPtr(false),
				UserTweakInstruction: "make it blue",
			},
			want: false,
		},
		{
			name: "tweak asking for the logo overrides original posture",
			job: domain.Job{
				IsTweak:              true,
				CurrentImageURL:      "https://cdn.example.com/a.png",
				OriginalHadLogos:     boolPtr(false),
				UserTweakInstruction: "add our logo to the corner",
			},
			want: true,
		},
		{
			name: "tweak mentioning brand mark",
			job: domain.Job{
				IsTweak:              true,
				CurrentImageURL:      "https://cdn.example.com/a.png",
				OriginalHadLogos:     boolPtr(false),
				UserTweakInstruction: "place the Brand Mark bottom right",
			},
			want: true,
		},
		{
			name: "tweak of original that had logos keeps them",
			job: domain.Job{
				IsTweak:              true,
				CurrentImageURL:      "https://cdn.example.com/a.png",
				OriginalHadLogos:     boolPtr(true),
				UserTweakInstruction: "brighter background",
			},
			want: true,
		},
		{
			name: "tweak without a produced image is a fresh turn",
			job: domain.Job{
				IsTweak:              true,
				UserTweakInstruction: "make it blue",
			},
			want: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NeedsLogos(&tc.job); got != tc.want {
				t.Fatalf("NeedsLogos() = %v, want %v", got, tc.want)
			}
		})
	}
}

type fakeFetcher struct {
	payloads map[string][]byte
	failures map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if err, ok := f.failures[url]; ok {
		return nil, "", err
	}
	return f.payloads[url], "image/png", nil
}

type passthroughRasterizer struct{}

func (passthroughRasterizer) Rasterize(raw []byte, mime string) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	return raw, nil
}

type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(raster []byte) bool { return len(raster) > 0 }

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestResolveDropsFailedLogosKeepsBatch(t *testing.T) {
	fetcher := &fakeFetcher{
		payloads: map[string][]byte{
			"https://cdn.example.com/primary.png": []byte("primary"),
			"https://cdn.example.com/alt.png":     []byte("alt"),
		},
		failures: map[string]error{
			"https://cdn.example.com/broken.png": fmt.Errorf("connection refused"),
		},
	}
	resolver := NewResolver(fetcher, passthroughRasterizer{}, acceptAllVerifier{}, time.Second, testLogger())

	job := &domain.Job{ID: "job-1"}
	logos := []domain.Logo{
		{ID: "l1", URL: "https://cdn.example.com/primary.png"},
		{ID: "l2", URL: "https://cdn.example.com/broken.png"},
		{ID: "l3", URL: "https://cdn.example.com/alt.png"},
	}

	needs, rasters := resolver.Resolve(context.Background(), job, logos)
	if !needs {
		t.Fatal("first turn must need logos")
	}
	if len(rasters) != 2 {
		t.Fatalf("resolved %d rasters, want 2", len(rasters))
	}
	// Surviving rasters keep their declared order.
	if string(rasters[0]) != "primary" || string(rasters[1]) != "alt" {
		t.Fatalf("order disturbed: %q, %q", rasters[0], rasters[1])
	}
}

func TestResolveAllLogosFailing(t *testing.T) {
	fetcher := &fakeFetcher{failures: map[string]error{
		"https://cdn.example.com/a.png": fmt.Errorf("boom"),
	}}
	resolver := NewResolver(fetcher, passthroughRasterizer{}, acceptAllVerifier{}, time.Second, testLogger())

	needs, rasters := resolver.Resolve(context.Background(), &domain.Job{ID: "job-1"},
		[]domain.Logo{{ID: "l1", URL: "https://cdn.example.com/a.png"}})
	if !needs {
		t.Fatal("logos were still needed even though none resolved")
	}
	if len(rasters) != 0 {
		t.Fatalf("expected empty batch, got %d", len(rasters))
	}
}

func TestResolveSkipsFetchWhenLogosNotNeeded(t *testing.T) {
	fetcher := &fakeFetcher{failures: map[string]error{
		"https://cdn.example.com/a.png": fmt.Errorf("should not be called"),
	}}
	resolver := NewResolver(fetcher, passthroughRasterizer{}, acceptAllVerifier{}, time.Second, testLogger())

	job := &domain.Job{
		ID:                   "job-1",
		IsTweak:              true,
		CurrentImageURL:      "https://cdn.example.com/prev.png",
		OriginalHadLogos:     boolPtr(false),
		UserTweakInstruction: "make it blue",
	}
	needs, rasters := resolver.Resolve(context.Background(), job,
		[]domain.Logo{{ID: "l1", URL: "https://cdn.example.com/a.png"}})
	if needs {
		t.Fatal("color tweak of a logo-free original must not need logos")
	}
	if rasters != nil {
		t.Fatalf("expected nil rasters, got %d", len(rasters))
	}
}

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestResolveRejectsUndecodableRaster(t *testing.T) {
	fetcher := &fakeFetcher{payloads: map[string][]byte{
		"https://cdn.example.com/garbage.png": []byte("not a png"),
		"https://cdn.example.com/good.png":    encodeTestPNG(t, 300, 300),
	}}
	resolver := NewResolver(fetcher, NewStandardRasterizer(), NewStandardRasterizer(), time.Second, testLogger())

	_, rasters := resolver.Resolve(context.Background(), &domain.Job{ID: "job-1"},
		[]domain.Logo{
			{ID: "l1", URL: "https://cdn.example.com/garbage.png", MIME: "image/png"},
			{ID: "l2", URL: "https://cdn.example.com/good.png", MIME: "image/png"},
		})
	if len(rasters) != 1 {
		t.Fatalf("resolved %d rasters, want 1", len(rasters))
	}
}
