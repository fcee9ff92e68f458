package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/richard-senior/podds/pkg/podds"
)

// PosteriorRecord is a fitted posterior keyed by its cache key. The draws are
// stored as brotli compressed JSON.
type PosteriorRecord struct {
	Key       string `column:"cache_key" dbtype:"TEXT NOT NULL" primary:"true"`
	Fidelity  string `column:"fidelity" dbtype:"TEXT" index:"true"`
	Draws     int    `column:"draws" dbtype:"INTEGER"`
	Seed      int64  `column:"seed" dbtype:"INTEGER"`
	Data      []byte `column:"data" dbtype:"BLOB"`
	CreatedAt int64  `column:"created_at" dbtype:"INTEGER" index:"true"` // unix millis
}

func (r *PosteriorRecord) GetTableName() string {
	return "posterior"
}

func (r *PosteriorRecord) GetPrimaryKey() map[string]any {
	return map[string]any{"cache_key": r.Key}
}

func (r *PosteriorRecord) BeforeSave() error {
	if r.Key == "" {
		return errors.New("posterior key is empty")
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	return nil
}

func encodePosterior(p *podds.Posterior) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to encode posterior: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress posterior: %w", err)
	}
	return buf.Bytes(), nil
}

func decodePosterior(data []byte) (*podds.Posterior, error) {
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress posterior: %w", err)
	}
	var p podds.Posterior
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode posterior: %w", err)
	}
	return &p, nil
}

// LoadPosterior returns (nil, nil) when no posterior is stored under key.
func (s *Store) LoadPosterior(key string) (*podds.Posterior, error) {
	rec := &PosteriorRecord{Key: key}
	if err := s.FindByPrimaryKey(rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decodePosterior(rec.Data)
}

func (s *Store) SavePosterior(key string, p *podds.Posterior) error {
	data, err := encodePosterior(p)
	if err != nil {
		return err
	}
	return s.Save(&PosteriorRecord{
		Key:      key,
		Fidelity: p.Fidelity.Name,
		Draws:    p.Len(),
		Seed:     int64(p.Seed),
		Data:     data,
	})
}

func (s *Store) DeletePosterior(key string) error {
	return s.Delete(&PosteriorRecord{Key: key})
}

func (s *Store) ClearPosteriors() error {
	return s.DeleteAll(&PosteriorRecord{})
}

// PosteriorCount is the number of stored posteriors.
func (s *Store) PosteriorCount() (int, error) {
	return s.Count(&PosteriorRecord{})
}

var _ podds.PosteriorStore = (*Store)(nil)
