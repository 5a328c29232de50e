package plusd

import (
	"cablequest/lib/restyutil"
	"cablequest/lib/telemetry"
)

var tracer = telemetry.Tracer("scrapers/plusd")

var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput directs full request/response transcripts of
// every archive call to the given output. Must be called before any
// client is constructed.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}
