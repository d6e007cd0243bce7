package parcel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bhupatram/tippan/internal/pmtiles"
)

// archiveBytes builds a minimal valid archive: a real header followed by
// filler standing in for directories and tile data.
func archiveBytes(minZoom, maxZoom uint8) []byte {
	h := pmtiles.HeaderV3{
		SpecVersion: 3,
		TileType:    pmtiles.Mvt,
		MinZoom:     minZoom,
		MaxZoom:     maxZoom,
		MinLonE7:    685000000, // 68.5
		MinLatE7:    68000000,  // 6.8
		MaxLonE7:    974000000, // 97.4
		MaxLatE7:    356000000, // 35.6
	}
	return append(pmtiles.SerializeHeader(h), bytes.Repeat([]byte{0}, 64)...)
}

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestInfoWithoutArchive(t *testing.T) {
	s := newService(t)
	info, err := s.Info()
	if err != nil {
		t.Fatal(err)
	}
	if info.Exists {
		t.Error("archive reported before any promote")
	}
}

func TestPromoteAndInfo(t *testing.T) {
	s := newService(t)
	if err := s.Promote(bytes.NewReader(archiveBytes(8, 16))); err != nil {
		t.Fatal(err)
	}

	info, err := s.Info()
	if err != nil {
		t.Fatal(err)
	}
	if !info.Exists {
		t.Fatal("archive missing after promote")
	}
	if info.MinZoom != 8 || info.MaxZoom != 16 {
		t.Errorf("zoom range = [%d %d]", info.MinZoom, info.MaxZoom)
	}
	if info.Bounds[0] != 68.5 || info.Bounds[3] != 35.6 {
		t.Errorf("bounds = %v", info.Bounds)
	}
	if info.SizeBytes != int64(len(archiveBytes(8, 16))) {
		t.Errorf("size = %d", info.SizeBytes)
	}
}

func TestPromoteBacksUpPrevious(t *testing.T) {
	s := newService(t)
	if err := s.Promote(bytes.NewReader(archiveBytes(8, 14))); err != nil {
		t.Fatal(err)
	}
	if err := s.Promote(bytes.NewReader(archiveBytes(8, 16))); err != nil {
		t.Fatal(err)
	}

	info, err := s.Info()
	if err != nil {
		t.Fatal(err)
	}
	if info.MaxZoom != 16 {
		t.Errorf("live archive max zoom = %d, want the new upload", info.MaxZoom)
	}

	entries, err := os.ReadDir(filepath.Dir(s.CurrentPath()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("tiles dir has %d entries, want only the live archive", len(entries))
	}

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(s.CurrentPath()), "..", "temp", "parcels-*.pmtiles"))
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Errorf("backups = %v, want one timestamped backup", backups)
	}
}

func TestPromoteRejectsGarbage(t *testing.T) {
	s := newService(t)
	if err := s.Promote(bytes.NewReader(archiveBytes(8, 14))); err != nil {
		t.Fatal(err)
	}

	err := s.Promote(strings.NewReader("this is not a tile archive"))
	if err == nil {
		t.Fatal("garbage upload accepted")
	}

	// The live archive must be untouched.
	info, err := s.Info()
	if err != nil {
		t.Fatal(err)
	}
	if !info.Exists || info.MaxZoom != 14 {
		t.Errorf("live archive disturbed by rejected upload: %+v", info)
	}
}
