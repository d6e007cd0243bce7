// Package parcel manages the tiled parcel archive: the single
// parcels.pmtiles file the viewer's reference layer is served from,
// plus its replacement lifecycle.
package parcel

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/bhupatram/tippan/internal/pmtiles"
)

// ArchiveName is the fixed name of the live parcel archive.
const ArchiveName = "parcels.pmtiles"

// Info describes the live archive.
type Info struct {
	Exists    bool      `json:"exists"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	Modified  time.Time `json:"last_modified,omitzero"`
	MinZoom   uint8     `json:"min_zoom,omitempty"`
	MaxZoom   uint8     `json:"max_zoom,omitempty"`
	// Bounds is [minLon, minLat, maxLon, maxLat] in degrees.
	Bounds [4]float64 `json:"bounds,omitempty"`
}

// Service owns the archive files under the data directory. Replacement
// is rename-based so a reader never sees a half-written archive.
type Service struct {
	tilesDir string
	tempDir  string
	log      zerolog.Logger
}

// NewService creates the parcel archive service rooted at dataDir.
func NewService(dataDir string, log zerolog.Logger) (*Service, error) {
	s := &Service{
		tilesDir: filepath.Join(dataDir, "tiles"),
		tempDir:  filepath.Join(dataDir, "temp"),
		log:      log,
	}
	for _, dir := range []string{s.tilesDir, s.tempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return s, nil
}

// CurrentPath returns the path of the live archive, whether or not it
// exists yet.
func (s *Service) CurrentPath() string {
	return filepath.Join(s.tilesDir, ArchiveName)
}

// Promote installs a new archive: the upload is staged in the temp
// directory, its header validated, the previous archive moved aside as
// a timestamped backup and the staged file renamed into place.
func (s *Service) Promote(r io.Reader) error {
	incoming := filepath.Join(s.tempDir, "incoming.pmtiles")

	f, err := os.Create(incoming)
	if err != nil {
		return fmt.Errorf("staging archive: %w", err)
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("staging archive: %w", err)
	}

	if _, err := readHeader(incoming); err != nil {
		os.Remove(incoming)
		return fmt.Errorf("rejecting upload: %w", err)
	}

	current := s.CurrentPath()
	if _, err := os.Stat(current); err == nil {
		backup := filepath.Join(s.tempDir,
			fmt.Sprintf("parcels-%d.pmtiles", time.Now().UnixMilli()))
		if err := os.Rename(current, backup); err != nil {
			return fmt.Errorf("backing up previous archive: %w", err)
		}
		s.log.Info().Str("backup", backup).Msg("previous parcel archive moved aside")
	}

	if err := os.Rename(incoming, current); err != nil {
		return fmt.Errorf("promoting archive: %w", err)
	}
	s.log.Info().Int64("bytes", written).Msg("parcel archive promoted")
	return nil
}

// Info describes the live archive. A missing archive is not an error;
// Exists is simply false.
func (s *Service) Info() (Info, error) {
	current := s.CurrentPath()
	stat, err := os.Stat(current)
	if os.IsNotExist(err) {
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("reading archive info: %w", err)
	}

	info := Info{
		Exists:    true,
		SizeBytes: stat.Size(),
		Modified:  stat.ModTime().UTC(),
	}

	header, err := readHeader(current)
	if err != nil {
		// Old archive with an unreadable header still serves tiles.
		s.log.Warn().Err(err).Msg("parcel archive header unreadable")
		return info, nil
	}
	info.MinZoom = header.MinZoom
	info.MaxZoom = header.MaxZoom
	minLon, minLat, maxLon, maxLat := header.Bounds()
	info.Bounds = [4]float64{minLon, minLat, maxLon, maxLat}
	return info, nil
}

func readHeader(path string) (pmtiles.HeaderV3, error) {
	f, err := os.Open(path)
	if err != nil {
		return pmtiles.HeaderV3{}, err
	}
	defer f.Close()

	buf := make([]byte, pmtiles.HeaderV3LenBytes)
	if _, err := io.ReadFull(f, buf); err != nil {
		return pmtiles.HeaderV3{}, fmt.Errorf("reading header: %w", err)
	}
	return pmtiles.DeserializeHeader(buf)
}
