package midiassembler

import (
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func noteOn(channel, key, velocity int) midi.Message {
	return midi.NoteOn(u8(channel), u8(key), u8(velocity))
}

func noteOff(channel, key int) midi.Message {
	return midi.NoteOff(u8(channel), u8(key))
}

func controlChange(channel, controller, value int) midi.Message {
	return midi.ControlChange(u8(channel), u8(controller), u8(value))
}

func programChange(channel, program int) midi.Message {
	return midi.ProgramChange(u8(channel), u8(program))
}

func metaTempo(bpm int) midi.Message {
	if bpm <= 0 {
		bpm = 1
	}
	return smf.MetaTempo(float64(bpm))
}

func metaTimeSignature(num, denom uint8) midi.Message {
	return smf.MetaMeter(num, denom)
}

func metaTrackName(name string) midi.Message {
	return smf.MetaTrackSequenceName(name)
}
