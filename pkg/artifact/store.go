// Package artifact implements the PALD artifact store: pseudonymised,
// content-hashed persistence of processed requests, plus statistics and
// filtered export for research auditing.
package artifact

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paldcore/paldcore/pkg/pald"
	"github.com/paldcore/paldcore/pkg/shared/errors"
)

// Store is the in-memory, process-wide artifact repository. A real
// deployment can swap this for a database-backed implementation behind
// the same interface.
type Store struct {
	mu        sync.Mutex
	artifacts map[string]*pald.Artifact
}

// NewStore returns an empty artifact store.
func NewStore() *Store {
	return &Store{artifacts: make(map[string]*pald.Artifact)}
}

// Pseudonym derives a deterministic, non-reversible identifier for a raw
// user id: sha256("pald_user_"+rawID), truncated to 16 hex characters and
// prefixed "user_".
func Pseudonym(rawID string) string {
	sum := sha256.Sum256([]byte("pald_user_" + rawID))
	return fmt.Sprintf("user_%x", sum)[:21]
}

// ContentHash derives a short content hash for tracking text without
// storing it: bare sha256(text) truncated to 16 hex characters. Empty text
// hashes to the empty string.
func ContentHash(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)[:16]
}

// CreateInput carries everything needed to persist one processed request.
type CreateInput struct {
	SessionID          string
	UserID             string
	DescriptionText    string
	EmbodimentCaption  string
	LightRecord        *pald.LightRecord
	DiffResult         *pald.DiffResult
	ProcessingMetadata map[string]interface{}
}

// Create pseudonymises in.UserID, hashes the raw texts, and stores a new
// artifact, returning its generated id.
func (s *Store) Create(in CreateInput) string {
	artifactID := uuid.NewString()

	hashes := map[string]string{
		"description_hash": ContentHash(in.DescriptionText),
		"session_hash":      ContentHash(in.SessionID),
	}
	if in.EmbodimentCaption != "" {
		hashes["embodiment_hash"] = ContentHash(in.EmbodimentCaption)
	}

	a := &pald.Artifact{
		ArtifactID:         artifactID,
		SessionID:          in.SessionID,
		UserPseudonym:      Pseudonym(in.UserID),
		DescriptionText:    in.DescriptionText,
		EmbodimentCaption:  in.EmbodimentCaption,
		LightRecord:        in.LightRecord,
		DiffResult:         in.DiffResult,
		ProcessingMetadata: in.ProcessingMetadata,
		CreatedAt:          time.Now(),
		InputHashes:        hashes,
	}

	s.mu.Lock()
	s.artifacts[artifactID] = a
	s.mu.Unlock()

	return artifactID
}

// Get returns one artifact by id.
func (s *Store) Get(artifactID string) (*pald.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[artifactID]
	if !ok {
		return nil, errors.FailedToWithDetails("get artifact", "artifact", artifactID, fmt.Errorf("not found"))
	}
	return a, nil
}

// BySession returns every artifact recorded for sessionID, oldest first.
func (s *Store) BySession(sessionID string) []*pald.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*pald.Artifact
	for _, a := range s.artifacts {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	sortByCreatedAt(out)
	return out
}

// ByPseudonym returns every artifact recorded for a pseudonymised user id,
// oldest first.
func (s *Store) ByPseudonym(pseudonym string) []*pald.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*pald.Artifact
	for _, a := range s.artifacts {
		if a.UserPseudonym == pseudonym {
			out = append(out, a)
		}
	}
	sortByCreatedAt(out)
	return out
}

func sortByCreatedAt(artifacts []*pald.Artifact) {
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt)
	})
}

// Cleanup removes artifacts created before cutoff, returning how many were
// removed, enforcing the configured retention window.
func (s *Store) Cleanup(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, a := range s.artifacts {
		if a.CreatedAt.Before(cutoff) {
			delete(s.artifacts, id)
			removed++
		}
	}
	return removed
}

// DateRange is the earliest/latest CreatedAt across the artifacts a
// Statistics call observed.
type DateRange struct {
	Earliest time.Time
	Latest   time.Time
}

// Statistics summarises the store's current contents.
type Statistics struct {
	TotalArtifacts    int
	UniqueSessions    int
	UniqueUsers       int
	ArtifactsWithDiff int
	DateRange         *DateRange
}

// Statistics computes an aggregate summary over every stored artifact.
func (s *Store) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.artifacts) == 0 {
		return Statistics{}
	}

	sessions := make(map[string]bool)
	users := make(map[string]bool)
	withDiff := 0
	var earliest, latest time.Time

	for _, a := range s.artifacts {
		sessions[a.SessionID] = true
		users[a.UserPseudonym] = true
		if a.DiffResult != nil {
			withDiff++
		}
		if earliest.IsZero() || a.CreatedAt.Before(earliest) {
			earliest = a.CreatedAt
		}
		if latest.IsZero() || a.CreatedAt.After(latest) {
			latest = a.CreatedAt
		}
	}

	return Statistics{
		TotalArtifacts:    len(s.artifacts),
		UniqueSessions:    len(sessions),
		UniqueUsers:       len(users),
		ArtifactsWithDiff: withDiff,
		DateRange:         &DateRange{Earliest: earliest, Latest: latest},
	}
}

// ExportFilter narrows Export to a subset of stored artifacts.
type ExportFilter struct {
	SessionIDs []string
	StartDate  *time.Time
	EndDate    *time.Time
}

func (f ExportFilter) matches(a *pald.Artifact) bool {
	if len(f.SessionIDs) > 0 {
		found := false
		for _, id := range f.SessionIDs {
			if id == a.SessionID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.StartDate != nil && a.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && a.CreatedAt.After(*f.EndDate) {
		return false
	}
	return true
}

// ExportedArtifact is one artifact's serializable, PII-free form: raw
// description and embodiment text are never included.
type ExportedArtifact struct {
	ArtifactID         string
	SessionID          string
	UserPseudonym      string
	InputHashes        map[string]string
	LightRecord        *pald.LightRecord
	DiffResult         *pald.DiffResult
	ProcessingMetadata map[string]interface{}
	CreatedAt          time.Time
}

// Export returns every stored artifact matching filter, oldest first, in
// its PII-free exported form.
func (s *Store) Export(filter ExportFilter) []ExportedArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*pald.Artifact
	for _, a := range s.artifacts {
		if filter.matches(a) {
			matched = append(matched, a)
		}
	}
	sortByCreatedAt(matched)

	out := make([]ExportedArtifact, 0, len(matched))
	for _, a := range matched {
		out = append(out, ExportedArtifact{
			ArtifactID:         a.ArtifactID,
			SessionID:          a.SessionID,
			UserPseudonym:      a.UserPseudonym,
			InputHashes:        a.InputHashes,
			LightRecord:        a.LightRecord,
			DiffResult:         a.DiffResult,
			ProcessingMetadata: a.ProcessingMetadata,
			CreatedAt:          a.CreatedAt,
		})
	}
	return out
}
