// Package archive writes finished simulation runs to a blob store: one JSON
// object per round plus a manifest describing the run.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"santasim/internal/blob"
	"santasim/pkg/domain"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	rootPrefix      = "runs"
	manifestName    = "manifest.json"
	jsonContentType = "application/json"
)

// Manifest describes an archived run.
type Manifest struct {
	RunID     string       `json:"run_id"`
	CreatedAt time.Time    `json:"created_at"`
	Scenario  string       `json:"scenario,omitempty"`
	Rounds    []RoundEntry `json:"rounds"`
}

// RoundEntry indexes one round object. Ordering is per round because an
// annual change may pick its own.
type RoundEntry struct {
	Round      int             `json:"round"`
	Key        string          `json:"key"`
	Budget     float64         `json:"santa_budget"`
	BudgetUnit float64         `json:"budget_unit"`
	Ordering   domain.Ordering `json:"ordering"`
	Population int             `json:"population"`
	Gifts      int             `json:"gifts_assigned"`
}

// Archiver stores runs under runs/<run-id>/.
type Archiver struct {
	store blob.Store
	newID func() string
	now   func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) Option {
	return func(a *Archiver) {
		if fn != nil {
			a.newID = fn
		}
	}
}

// WithNow overrides the manifest timestamp source.
func WithNow(fn func() time.Time) Option {
	return func(a *Archiver) {
		if fn != nil {
			a.now = fn
		}
	}
}

// New constructs an Archiver over store.
func New(store blob.Store, opts ...Option) *Archiver {
	a := &Archiver{
		store: store,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RoundKey returns the object key of a round.
func RoundKey(runID string, round int) string {
	return path.Join(rootPrefix, runID, fmt.Sprintf("round-%03d.json", round))
}

// ManifestKey returns the object key of a run manifest.
func ManifestKey(runID string) string {
	return path.Join(rootPrefix, runID, manifestName)
}

// Save writes every snapshot and then the manifest. The manifest is written
// last so a listed manifest always refers to complete rounds.
func (a *Archiver) Save(ctx context.Context, scenario string, snapshots []domain.RoundSnapshot) (Manifest, error) {
	if len(snapshots) == 0 {
		return Manifest{}, errors.New("archive: no rounds to save")
	}
	m := Manifest{
		RunID:     a.newID(),
		CreatedAt: a.now(),
		Scenario:  scenario,
		Rounds:    make([]RoundEntry, 0, len(snapshots)),
	}
	for _, snap := range snapshots {
		key := RoundKey(m.RunID, snap.Round)
		meta := map[string]string{"run-id": m.RunID, "round": strconv.Itoa(snap.Round)}
		if err := a.putJSON(ctx, key, snap, meta); err != nil {
			return Manifest{}, err
		}
		m.Rounds = append(m.Rounds, RoundEntry{
			Round:      snap.Round,
			Key:        key,
			Budget:     snap.Budget,
			BudgetUnit: snap.BudgetUnit,
			Ordering:   snap.Ordering,
			Population: len(snap.Children),
			Gifts:      snap.GiftCount(),
		})
	}
	if err := a.putJSON(ctx, ManifestKey(m.RunID), m, map[string]string{"run-id": m.RunID}); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Load reads a run's manifest and all of its rounds.
func (a *Archiver) Load(ctx context.Context, runID string) (Manifest, []domain.RoundSnapshot, error) {
	var m Manifest
	if err := a.getJSON(ctx, ManifestKey(runID), &m); err != nil {
		return Manifest{}, nil, err
	}
	snaps := make([]domain.RoundSnapshot, len(m.Rounds))
	for i, entry := range m.Rounds {
		if err := a.getJSON(ctx, entry.Key, &snaps[i]); err != nil {
			return Manifest{}, nil, err
		}
	}
	return m, snaps, nil
}

// Runs lists the ids of archived runs that have a manifest, ordered by key.
func (a *Archiver) Runs(ctx context.Context) ([]string, error) {
	infos, err := a.store.List(ctx, rootPrefix+"/")
	if err != nil {
		return nil, fmt.Errorf("archive: list runs: %w", err)
	}
	var ids []string
	for _, info := range infos {
		dir, file := path.Split(info.Key)
		if file != manifestName {
			continue
		}
		ids = append(ids, path.Base(dir))
	}
	return ids, nil
}

func (a *Archiver) putJSON(ctx context.Context, key string, v any, meta map[string]string) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encode %s: %w", key, err)
	}
	if _, err := a.store.Put(ctx, key, bytes.NewReader(b), blob.PutOptions{ContentType: jsonContentType, Metadata: meta}); err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}

func (a *Archiver) getJSON(ctx context.Context, key string, v any) error {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("archive: get %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("archive: read %s: %w", key, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("archive: decode %s: %w", key, err)
	}
	return nil
}
