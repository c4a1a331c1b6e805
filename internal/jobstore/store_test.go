package jobstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/sonifycore/internal/model"
)

func TestBeginBuildIsIdempotentWhileInFlight(t *testing.T) {
	s := New(t.TempDir(), []byte("secret"), time.Hour, time.Minute)

	j1, started1 := s.BeginBuild("fp1", "job1", 100)
	require.True(t, started1)
	j2, started2 := s.BeginBuild("fp1", "job2", 101)
	assert.False(t, started2)
	assert.Equal(t, j1.JobID, j2.JobID)
}

func TestBeginBuildAllowsRetryAfterFailure(t *testing.T) {
	s := New(t.TempDir(), []byte("secret"), time.Hour, time.Second)
	_, _ = s.BeginBuild("fp1", "job1", 100)
	assert.NoError(t, s.MarkFailed("fp1", assertErr(), 101))

	_, started := s.BeginBuild("fp1", "job2", 103)
	assert.True(t, started, "failure is older than the retry window, so a resubmission should start a fresh build")
}

func TestBeginBuildReturnsFailedJobAsIsWithinRetryWindow(t *testing.T) {
	s := New(t.TempDir(), []byte("secret"), time.Hour, time.Minute)
	_, _ = s.BeginBuild("fp1", "job1", 100)
	assert.NoError(t, s.MarkFailed("fp1", assertErr(), 101))

	existing, started := s.BeginBuild("fp1", "job2", 102)
	assert.False(t, started, "failure is younger than the retry window, so it should be returned as-is")
	assert.Equal(t, "job1", existing.JobID)
	assert.Equal(t, model.JobFailed, existing.State)
}

func TestMarkSucceededPersistsRecord(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, []byte("secret"), time.Hour, time.Minute)
	_, _ = s.BeginBuild("fp1", "job1", 100)
	s.MarkRunning("fp1", 101)
	err := s.MarkSucceeded("fp1", model.ArtifactKeys{MIDI: "t/midi_output/job1.mid"}, model.MomentumPos, 102)
	require.NoError(t, err)

	j, ok := s.Lookup("fp1")
	require.True(t, ok)
	assert.Equal(t, model.JobSucceeded, j.State)
	assert.Equal(t, "t/midi_output/job1.mid", j.ArtifactKeys.MIDI)
	assert.Equal(t, model.MomentumPos, j.PrimaryLabel)
}

func TestWriteAndReadArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, []byte("secret"), time.Hour, time.Minute)
	art, err := s.WriteArtifact("t/midi_output/job1.mid", model.ArtifactMIDI, []byte("MThd..."), 100)
	require.NoError(t, err)
	assert.Equal(t, 7, art.Size)

	data, err := s.ReadArtifact("t/midi_output/job1.mid")
	require.NoError(t, err)
	assert.Equal(t, []byte("MThd..."), data)
}

func TestSignedURLRoundTrip(t *testing.T) {
	s := New(t.TempDir(), []byte("secret"), time.Minute, time.Minute)
	now := time.Unix(1000, 0)
	url := s.SignedURL("t/midi_output/job1.mid", now)
	assert.Contains(t, url, "t/midi_output/job1.mid")

	expiry := now.Add(time.Minute).Unix()
	sig := s.sign("t/midi_output/job1.mid", expiry)
	assert.True(t, s.VerifySignedURL("t/midi_output/job1.mid", expiry, sig, now))
	assert.False(t, s.VerifySignedURL("t/midi_output/job1.mid", expiry, sig, now.Add(2*time.Minute)))
}

func assertErr() error {
	return &stubErr{}
}

type stubErr struct{}

func (s *stubErr) Error() string { return "build failed" }
