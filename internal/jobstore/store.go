// Package jobstore implements a fingerprint-keyed job table with
// at-most-one-concurrent-build semantics, atomic artifact writes, and
// signed-URL generation, saved to disk with jsoniter plus one data file per
// job under a content-addressed key.
package jobstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/schollz/sonifycore/internal/corerr"
	"github.com/schollz/sonifycore/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RetryBackoff is the fixed 3-attempt exponential backoff schedule applied
// to builds that fail with a storage (ArtifactIOError) failure.
var RetryBackoff = []time.Duration{100 * time.Millisecond, 400 * time.Millisecond, 1600 * time.Millisecond}

// defaultRetryWindow is how long a failed job is returned as-is before a
// resubmission is allowed to start a fresh build.
const defaultRetryWindow = 30 * time.Second

// Store is an in-memory, disk-backed job table keyed by fingerprint. One
// fingerprint maps to exactly one Job; submitting the same fingerprint
// twice while it is queued/running returns the existing job instead of
// starting a second build.
type Store struct {
	mu          sync.Mutex
	dir         string
	jobs        map[string]*model.Job
	building    map[string]bool
	signingKey  []byte
	urlTTL      time.Duration
	retryWindow time.Duration
}

// New returns a Store persisting job records and artifacts under dir.
// retryWindow governs BeginBuild's failed-job retry gate (defaultRetryWindow
// if <= 0).
func New(dir string, signingKey []byte, urlTTL time.Duration, retryWindow time.Duration) *Store {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	if retryWindow <= 0 {
		retryWindow = defaultRetryWindow
	}
	return &Store{
		dir:         dir,
		jobs:        map[string]*model.Job{},
		building:    map[string]bool{},
		signingKey:  signingKey,
		urlTTL:      urlTTL,
		retryWindow: retryWindow,
	}
}

// Lookup returns an existing job for fingerprint, if any.
func (s *Store) Lookup(fingerprint string) (*model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[fingerprint]
	return j, ok
}

// BeginBuild registers a new queued job for fingerprint, or returns the
// existing one if a build is already in flight, implementing submit_job's
// idempotency contract. started reports whether THIS call is the one that
// should actually run the pipeline.
func (s *Store) BeginBuild(fingerprint, jobID string, now int64) (job *model.Job, started bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[fingerprint]; ok {
		switch existing.State {
		case model.JobQueued, model.JobRunning, model.JobSucceeded:
			return existing, false
		case model.JobFailed:
			age := time.Duration(now-existing.UpdatedAt) * time.Second
			if age < s.retryWindow {
				return existing, false
			}
		}
	}

	j := &model.Job{
		Fingerprint: fingerprint,
		JobID:       jobID,
		State:       model.JobQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.jobs[fingerprint] = j
	s.building[fingerprint] = true
	log.Printf("[JOBSTORE] queued job %s fingerprint=%s", jobID, fingerprint)
	return j, true
}

// MarkRunning transitions a queued job to running.
func (s *Store) MarkRunning(fingerprint string, now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[fingerprint]; ok {
		j.State = model.JobRunning
		j.UpdatedAt = now
		j.Attempt++
	}
}

// MarkSucceeded transitions a job to succeeded, recording its artifact
// keys and primary label, and persists the record to disk.
func (s *Store) MarkSucceeded(fingerprint string, keys model.ArtifactKeys, primaryLabel model.Label, now int64) error {
	s.mu.Lock()
	j, ok := s.jobs[fingerprint]
	if ok {
		j.State = model.JobSucceeded
		j.ArtifactKeys = keys
		j.PrimaryLabel = primaryLabel
		j.UpdatedAt = now
		j.ErrorKind = ""
		j.Error = ""
	}
	delete(s.building, fingerprint)
	s.mu.Unlock()

	if !ok {
		return corerr.New(corerr.InternalError, "MarkSucceeded called for unknown fingerprint")
	}
	log.Printf("[JOBSTORE] job %s succeeded", j.JobID)
	return s.persist(j)
}

// MarkFailed transitions a job to failed, recording the error kind and
// message, and persists the record to disk.
func (s *Store) MarkFailed(fingerprint string, err error, now int64) error {
	s.mu.Lock()
	j, ok := s.jobs[fingerprint]
	if ok {
		j.State = model.JobFailed
		j.UpdatedAt = now
		j.ErrorKind = string(corerr.KindOf(err))
		j.Error = err.Error()
	}
	delete(s.building, fingerprint)
	s.mu.Unlock()

	if !ok {
		return corerr.New(corerr.InternalError, "MarkFailed called for unknown fingerprint")
	}
	log.Printf("[JOBSTORE] job %s failed: %v", j.JobID, err)
	return s.persist(j)
}

// persist writes the job record to <dir>/jobs/<fingerprint>.json atomically
// (write to a temp file, then rename), so a crash mid-write never leaves a
// torn record behind.
func (s *Store) persist(j *model.Job) error {
	if s.dir == "" {
		return nil
	}
	dir := filepath.Join(s.dir, "jobs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return corerr.Wrap(corerr.ArtifactIOError, "mkdir jobs dir", err)
	}
	data, err := json.Marshal(j)
	if err != nil {
		return corerr.Wrap(corerr.ArtifactIOError, "marshal job record", err)
	}
	return atomicWrite(filepath.Join(dir, j.Fingerprint+".json"), data)
}

// atomicWrite writes data to path by first writing to a sibling temp file
// and renaming it into place, the durable-write idiom storage.go's DoSave
// approximates with a direct gzip.Writer but without the rename step; the
// rename here closes that gap so artifact writes are crash-atomic.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return corerr.Wrap(corerr.ArtifactIOError, "write temp file "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return corerr.Wrap(corerr.ArtifactIOError, "rename temp file into place", err)
	}
	return nil
}

// WriteArtifact atomically writes an artifact's bytes under key (relative
// to dir) and returns its Artifact metadata.
func (s *Store) WriteArtifact(key string, kind model.ArtifactKind, data []byte, now int64) (model.Artifact, error) {
	if s.dir == "" {
		return model.Artifact{}, corerr.New(corerr.ArtifactIOError, "no artifact directory configured")
	}
	fullPath := filepath.Join(s.dir, key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return model.Artifact{}, corerr.Wrap(corerr.ArtifactIOError, "mkdir artifact dir", err)
	}
	if err := atomicWrite(fullPath, data); err != nil {
		return model.Artifact{}, err
	}
	sum := sha256.Sum256(data)
	return model.Artifact{
		Kind:        kind,
		Key:         key,
		BytesSHA256: hex.EncodeToString(sum[:]),
		Size:        len(data),
		CreatedAt:   now,
	}, nil
}

// ReadArtifact loads a previously written artifact's bytes by key.
func (s *Store) ReadArtifact(key string) ([]byte, error) {
	if s.dir == "" {
		return nil, corerr.New(corerr.ArtifactIOError, "no artifact directory configured")
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return nil, corerr.Wrap(corerr.ArtifactIOError, "read artifact "+key, err)
	}
	return data, nil
}

// SignedURL returns a time-limited, HMAC-signed reference to an artifact
// key, expiring urlTTL from now. The "URL" is a local path?query string
// carrying expiry and signature; an HTTP-fronted deployment of this core
// would exchange it for a real presigned URL at the storage layer, but the
// signing contract is identical either way.
func (s *Store) SignedURL(key string, now time.Time) string {
	expiry := now.Add(s.urlTTL).Unix()
	sig := s.sign(key, expiry)
	return fmt.Sprintf("/artifacts/%s?expires=%d&sig=%s", key, expiry, sig)
}

func (s *Store) sign(key string, expiry int64) string {
	mac := hmac.New(sha256.New, s.signingKey)
	fmt.Fprintf(mac, "%s:%d", key, expiry)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignedURL reports whether sig is a valid, unexpired signature for
// key at expiry, evaluated against now.
func (s *Store) VerifySignedURL(key string, expiry int64, sig string, now time.Time) bool {
	if now.Unix() > expiry {
		return false
	}
	want := s.sign(key, expiry)
	return hmac.Equal([]byte(want), []byte(sig))
}
