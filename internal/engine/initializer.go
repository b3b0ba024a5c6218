package engine

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

// sessionRequest is one still-unplaced weekly hour of a batch/subject pairing.
type sessionRequest struct {
	batchID   string
	subjectID string
}

// initialPopulation builds the starting population. Individual 0 clones the
// caller's baseline when one was supplied so re-optimization starts from the
// published timetable.
func (e *Engine) initialPopulation(rng *rand.Rand) []*Individual {
	pop := make([]*Individual, 0, e.cfg.PopulationSize)
	for i := 0; i < e.cfg.PopulationSize; i++ {
		var base *models.Timetable
		if i == 0 && e.problem.Baseline != nil {
			base = e.problem.Baseline
		}
		pop = append(pop, e.newIndividual(rng, base))
	}
	return pop
}

// newIndividual builds one candidate: commit pinned placements verbatim, then
// fill the remaining required sessions with randomized oracle-checked draws.
func (e *Engine) newIndividual(rng *rand.Rand, baseline *models.Timetable) *Individual {
	var t *models.Timetable
	if baseline != nil {
		t = baseline.Clone()
	} else {
		t = models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	}

	e.commitPinned(t)
	queue := e.sessionQueue(t)
	e.fillSessions(rng, t, queue)
	return &Individual{Timetable: t}
}

// commitPinned expands every pinned assignment over its days, start slots, and
// duration, and places the sessions verbatim. Pinned placements win over
// whatever a baseline put in their cells.
func (e *Engine) commitPinned(t *models.Timetable) {
	for _, pin := range e.problem.Pinned {
		for _, day := range pin.Days {
			for _, start := range pin.StartSlots {
				duration := pin.Duration
				if duration <= 0 {
					duration = 1
				}
				for d := 0; d < duration; d++ {
					slot := start + d
					if !t.InBounds(day, slot) {
						continue
					}
					if cell := t.At(pin.BatchID, day, slot); cell != nil {
						if cell.Pinned {
							continue
						}
						t.Remove(pin.BatchID, day, slot)
					}
					faculty := make([]string, len(pin.FacultyIDs))
					copy(faculty, pin.FacultyIDs)
					t.Place(&models.ClassAssignment{
						ID:         uuid.NewString(),
						SubjectID:  pin.SubjectID,
						FacultyIDs: faculty,
						RoomID:     pin.RoomID,
						BatchID:    pin.BatchID,
						Day:        day,
						Slot:       slot,
						Pinned:     true,
					})
				}
			}
		}
	}
}

// sessionQueue lists the sessions still owed against each subject's weekly
// hours, after pinned and baseline placements are counted.
func (e *Engine) sessionQueue(t *models.Timetable) []sessionRequest {
	placed := e.placedSessions(t)

	var queue []sessionRequest
	for _, batchID := range e.snap.batchIDs {
		batch := e.snap.batches[batchID]
		for _, subjectID := range batch.SubjectIDs {
			required := e.snap.subjects[subjectID].HoursPerWeek
			for n := placed[allocationKey(batchID, subjectID)]; n < required; n++ {
				queue = append(queue, sessionRequest{batchID: batchID, subjectID: subjectID})
			}
		}
	}
	return queue
}

// fillSessions drains the queue with random (day, slot) draws validated by the
// oracle. Failed draws requeue the session; the total attempt budget is
// sessions x slotsPerDay x days, so dense weeks get proportionally more tries.
// Sessions still queued when the budget runs out stay unplaced and surface as
// hard conflicts.
func (e *Engine) fillSessions(rng *rand.Rand, t *models.Timetable, queue []sessionRequest) {
	budget := len(queue) * e.snap.geometry.SlotsPerDay * e.snap.geometry.Days

	for attempts := 0; len(queue) > 0 && attempts < budget; attempts++ {
		req := queue[0]
		queue = queue[1:]

		day := rng.Intn(t.Days)
		slot := rng.Intn(t.SlotsPerDay)

		a := e.buildAssignment(rng, t, req, day, slot)
		if a == nil {
			queue = append(queue, req)
			continue
		}
		t.Place(a)
	}
}

// buildAssignment assembles a fully valid assignment for the session at
// (day, slot), or nil when the cell, faculty, or room cannot be served.
func (e *Engine) buildAssignment(rng *rand.Rand, t *models.Timetable, req sessionRequest, day, slot int) *models.ClassAssignment {
	if !batchFree(t, req.batchID, day, slot) {
		return nil
	}
	faculty := e.pickFaculty(rng, t, req.batchID, req.subjectID, day, slot, nil)
	if faculty == nil {
		return nil
	}
	roomID := e.pickRoom(rng, t, req.batchID, req.subjectID, day, slot, nil)
	if roomID == "" {
		return nil
	}
	return &models.ClassAssignment{
		ID:         uuid.NewString(),
		SubjectID:  req.subjectID,
		FacultyIDs: faculty,
		RoomID:     roomID,
		BatchID:    req.batchID,
		Day:        day,
		Slot:       slot,
	}
}

// pickFaculty selects the subject's required headcount from the caller's
// allocation first, topping up from any qualified faculty. Everyone chosen
// must be free at (day, slot).
func (e *Engine) pickFaculty(rng *rand.Rand, t *models.Timetable, batchID, subjectID string, day, slot int, exclude *models.ClassAssignment) []string {
	headcount := e.snap.subjects[subjectID].Category.FacultyHeadcount()

	chosen := make([]string, 0, headcount)
	taken := make(map[string]bool, headcount)

	appendFree := func(candidates []string) {
		for _, i := range rng.Perm(len(candidates)) {
			if len(chosen) == headcount {
				return
			}
			id := candidates[i]
			if taken[id] || !e.faculty(id).Qualified(subjectID) {
				continue
			}
			if !e.facultyFree(t, id, day, slot, exclude) {
				continue
			}
			chosen = append(chosen, id)
			taken[id] = true
		}
	}

	appendFree(e.snap.allocations[allocationKey(batchID, subjectID)])
	if len(chosen) < headcount {
		appendFree(e.snap.qualified[subjectID])
	}
	if len(chosen) < headcount {
		return nil
	}
	return chosen
}

func (e *Engine) faculty(id string) models.Faculty {
	return e.snap.faculty[id]
}

// pickRoom returns a random suitable free room for the session, or "".
func (e *Engine) pickRoom(rng *rand.Rand, t *models.Timetable, batchID, subjectID string, day, slot int, exclude *models.ClassAssignment) string {
	for _, i := range rng.Perm(len(e.snap.roomIDs)) {
		roomID := e.snap.roomIDs[i]
		if e.roomFree(t, roomID, day, slot, batchID, subjectID, exclude) {
			return roomID
		}
	}
	return ""
}
