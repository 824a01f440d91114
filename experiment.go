package pktsim

// experiment.go lets the simulation run headless.  The interactive use
// of the model has an outside frame loop calling Update; for batch
// experiments and tests the same per-frame stepping is reproduced by
// scheduling a self-repeating frame event on an event manager and
// letting its virtual clock stand in for the frame timer.

import (
	"fmt"
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// frameDriver carries the stepping arguments through the event handler
type frameDriver struct {
	sim        *Simulation
	frameDelta float64 // simulated seconds per frame
	duration   float64 // simulated seconds to run for
	params     *SimParams
	frames     int // frames executed so far
}

// advanceFrame is the event handler for one frame: step the simulation,
// then schedule the next frame unless the run is over
func advanceFrame(evtMgr *evtm.EventManager, context any, data any) any {
	fd := context.(*frameDriver)

	fd.sim.Update(fd.frameDelta, fd.params)
	fd.frames += 1

	if evtMgr.CurrentSeconds()+fd.frameDelta <= fd.duration {
		evtMgr.Schedule(fd, nil, advanceFrame, vrtime.SecondsToTime(fd.frameDelta))
	}
	return nil
}

// RunExperiment steps the simulation at a fixed frame interval until the
// event manager's clock passes the requested duration, and returns the
// number of frames executed.  The params pointer is passed through to
// every Update, so a caller may mutate it between frames if it wants a
// schedule of parameter changes.
func RunExperiment(evtMgr *evtm.EventManager, sim *Simulation, frameDelta, duration float64, params *SimParams) int {
	if frameDelta <= 0.0 || duration <= 0.0 {
		panic(fmt.Errorf("non-positive frame interval or duration"))
	}

	fd := &frameDriver{sim: sim, frameDelta: frameDelta, duration: duration, params: params}

	evtMgr.Schedule(fd, nil, advanceFrame, vrtime.SecondsToTime(frameDelta))
	evtMgr.Run(duration)

	return fd.frames
}
