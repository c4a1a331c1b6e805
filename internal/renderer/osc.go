package renderer

import (
	"fmt"
	"log"

	"github.com/hypebeast/go-osc/osc"
)

// oscBridge sends render commands to the synthesis engine over OSC, the
// same client/message/append shape internal/model.go's
// sendOSCInstrumentMessage uses against a running sclang/SuperCollider
// process.
type oscBridge struct {
	client *osc.Client
}

func newOSCBridge(host string, port int) *oscBridge {
	return &oscBridge{client: osc.NewClient(host, port)}
}

// renderRequest asks the engine to synthesize midiPath to outWAVPath using
// soundfontPath, blocking the caller until the engine replies is left to
// the caller's own polling/timeout since go-osc is fire-and-forget.
func (b *oscBridge) renderRequest(midiPath, soundfontPath, outWAVPath string, targetLoudnessLUFS float64) error {
	if b.client == nil {
		return fmt.Errorf("renderer: no OSC client configured")
	}
	msg := osc.NewMessage("/render")
	msg.Append(midiPath)
	msg.Append(soundfontPath)
	msg.Append(outWAVPath)
	msg.Append(float32(targetLoudnessLUFS))

	if err := b.client.Send(msg); err != nil {
		log.Printf("[RENDERER] error sending OSC render request: %v", err)
		return err
	}
	log.Printf("[RENDERER] sent OSC render request for %s", midiPath)
	return nil
}
