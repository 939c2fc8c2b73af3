package tiles

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/storymap/pkg/geo"
)

func sampleHeader() *Header {
	return &Header{
		Version:    Version,
		TileType:   TilePNG,
		MinZoom:    0,
		MaxZoom:    14,
		Min:        geo.LngLat{Lon: -10.5, Lat: 35.25},
		Max:        geo.LngLat{Lon: 30.125, Lat: 60},
		CenterZoom: 6,
		Center:     geo.LngLat{Lon: 2.3522, Lat: 48.8566},
	}
}

func encode(t *testing.T, h *Header) []byte {
	t.Helper()
	b, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return b
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-7 }

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader(encode(t, sampleHeader()))
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	want := sampleHeader()
	if h.MaxZoom != 14 || h.MinZoom != 0 || h.CenterZoom != 6 || h.TileType != TilePNG {
		t.Errorf("unexpected header %+v", h)
	}
	if !near(h.Center.Lon, want.Center.Lon) || !near(h.Center.Lat, want.Center.Lat) {
		t.Errorf("center = %+v, want %+v", h.Center, want.Center)
	}
	if !near(h.Min.Lon, want.Min.Lon) || !near(h.Max.Lat, want.Max.Lat) {
		t.Errorf("bounds = %+v %+v", h.Min, h.Max)
	}
}

func TestParseHeader_Errors(t *testing.T) {
	good := encode(t, sampleHeader())

	if _, err := ParseHeader([]byte("GIF89a.......")); !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
	if _, err := ParseHeader(good[:40]); !errors.Is(err, ErrShortHeader) {
		t.Errorf("expected ErrShortHeader, got %v", err)
	}
	v2 := append([]byte(nil), good...)
	v2[7] = 2
	if _, err := ParseHeader(v2); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestReadHeader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.pmtiles")
	data := append(encode(t, sampleHeader()), make([]byte, 4096)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := ReadHeader(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.MaxZoom != 14 {
		t.Errorf("expected max zoom 14, got %d", h.MaxZoom)
	}

	if _, err := ReadHeader(context.Background(), filepath.Join(t.TempDir(), "missing.pmtiles")); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestReadHeader_RemoteUsesRange(t *testing.T) {
	data := append(encode(t, sampleHeader()), make([]byte, 1024)...)
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(data[:HeaderSize])
	}))
	defer srv.Close()

	h, err := ReadHeader(context.Background(), srv.URL+"/world.pmtiles")
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if gotRange != "bytes=0-126" {
		t.Errorf("expected range bytes=0-126, got %q", gotRange)
	}
	if !near(h.Center.Lat, 48.8566) {
		t.Errorf("unexpected center %+v", h.Center)
	}
}

func TestReadHeader_RemoteStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := ReadHeader(context.Background(), srv.URL+"/x.pmtiles"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestSourceURL(t *testing.T) {
	if got := SourceURL("tiles/world.pmtiles"); got != "pmtiles://tiles/world.pmtiles" {
		t.Errorf("SourceURL = %q", got)
	}
}
