package jobstore

import "fmt"

// ArtifactKeyMIDI, ArtifactKeyMP3, and ArtifactKeyPlanJSON build the storage
// key scheme: "<tenant>/midi_output/<job_id>.mid" and its siblings.
func ArtifactKeyMIDI(tenant, jobID string) string {
	return fmt.Sprintf("%s/midi_output/%s.mid", tenant, jobID)
}

func ArtifactKeyMP3(tenant, jobID string) string {
	return fmt.Sprintf("%s/midi_output/%s.mp3", tenant, jobID)
}

func ArtifactKeyPlanJSON(tenant, jobID string) string {
	return fmt.Sprintf("%s/midi_output/%s.plan.json", tenant, jobID)
}
