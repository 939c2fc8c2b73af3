// Package tiles reads the header of a PMTiles v3 tile archive: zoom range,
// bounds and suggested center. The archive itself is never decoded.
package tiles

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"

	"github.com/vanderheijden86/storymap/pkg/geo"
)

// HeaderSize is the fixed length of a v3 header.
const HeaderSize = 127

// Version is the only archive version understood.
const Version = 3

var magic = []byte("PMTiles")

var (
	ErrBadMagic           = errors.New("not a PMTiles archive")
	ErrUnsupportedVersion = errors.New("unsupported PMTiles version")
	ErrShortHeader        = errors.New("PMTiles header truncated")
)

// TileType is the tile payload format.
type TileType uint8

const (
	TileUnknown TileType = iota
	TileMVT
	TilePNG
	TileJPEG
	TileWebP
	TileAVIF
)

func (t TileType) String() string {
	switch t {
	case TileMVT:
		return "mvt"
	case TilePNG:
		return "png"
	case TileJPEG:
		return "jpeg"
	case TileWebP:
		return "webp"
	case TileAVIF:
		return "avif"
	default:
		return "unknown"
	}
}

// Header is the decoded archive header.
type Header struct {
	Version        uint8      `json:"version"`
	TileType       TileType   `json:"tileType"`
	MinZoom        uint8      `json:"minZoom"`
	MaxZoom        uint8      `json:"maxZoom"`
	Min            geo.LngLat `json:"min"`
	Max            geo.LngLat `json:"max"`
	CenterZoom     uint8      `json:"centerZoom"`
	Center         geo.LngLat `json:"center"`
	AddressedTiles uint64     `json:"addressedTiles"`
	Clustered      bool       `json:"clustered"`
}

// ParseHeader decodes the first HeaderSize bytes of an archive.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < len(magic) || !bytes.Equal(b[:len(magic)], magic) {
		return nil, ErrBadMagic
	}
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d of %d bytes", ErrShortHeader, len(b), HeaderSize)
	}
	if b[7] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, b[7])
	}
	le := binary.LittleEndian
	e7 := func(off int) float64 { return float64(int32(le.Uint32(b[off:]))) / 1e7 }
	return &Header{
		Version:        b[7],
		AddressedTiles: le.Uint64(b[72:]),
		Clustered:      b[96] == 1,
		TileType:       TileType(b[99]),
		MinZoom:        b[100],
		MaxZoom:        b[101],
		Min:            geo.LngLat{Lon: e7(102), Lat: e7(106)},
		Max:            geo.LngLat{Lon: e7(110), Lat: e7(114)},
		CenterZoom:     b[118],
		Center:         geo.LngLat{Lon: e7(119), Lat: e7(123)},
	}, nil
}

// ReadHeader reads the header from a local path or an http(s) URL. Remote
// archives are fetched with a single Range request.
func ReadHeader(ctx context.Context, location string) (*Header, error) {
	var (
		buf []byte
		err error
	)
	if isRemote(location) {
		buf, err = fetchHeader(ctx, location)
	} else {
		buf, err = readFileHeader(location)
	}
	if err != nil {
		return nil, fmt.Errorf("reading tile archive header %s: %w", location, err)
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("tile archive %s: %w", location, err)
	}
	return h, nil
}

func readFileHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func fetchHeader(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", HeaderSize-1))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(resp.Body, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// SourceURL returns the protocol URL a raster style uses for the archive.
func SourceURL(location string) string {
	return "pmtiles://" + location
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// MarshalBinary encodes h as a v3 header with empty directories.
func (h *Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	copy(b, magic)
	b[7] = Version
	le := binary.LittleEndian
	putE7 := func(off int, v float64) { le.PutUint32(b[off:], uint32(int32(math.Round(v * 1e7)))) }
	le.PutUint64(b[72:], h.AddressedTiles)
	if h.Clustered {
		b[96] = 1
	}
	b[99] = byte(h.TileType)
	b[100] = h.MinZoom
	b[101] = h.MaxZoom
	putE7(102, h.Min.Lon)
	putE7(106, h.Min.Lat)
	putE7(110, h.Max.Lon)
	putE7(114, h.Max.Lat)
	b[118] = h.CenterZoom
	putE7(119, h.Center.Lon)
	putE7(123, h.Center.Lat)
	return b, nil
}
