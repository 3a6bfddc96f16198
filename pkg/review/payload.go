// Package review holds the sparse human overlay on top of detector output
// and the pure functions that read and change it.
//
// A Payload is an immutable value. Transitions return a new Payload and
// never touch their input, so a Payload can be shared freely between a
// session, a pending canonical write and a BOM computation.
package review

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
)

// TimestampLayout is the wire format of UpdatedAt (millisecond precision, UTC)
// for instants without sub-millisecond digits.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Instance is a sparse override for one detection. A nil field means "no
// override"; an Instance with neither field set is never stored.
type Instance struct {
	DetectionID      string
	Accepted         *bool
	RelabelAssetType *string
}

// IsEmpty reports whether the instance carries no override at all.
func (i Instance) IsEmpty() bool {
	return i.Accepted == nil && (i.RelabelAssetType == nil || *i.RelabelAssetType == "")
}

// Payload is the review overlay of one job.
type Payload struct {
	JobID     string
	UpdatedAt time.Time

	byID  map[string]Instance
	order []string
}

// Empty is the initial overlay of a job nobody has reviewed yet.
func Empty(jobID string, at time.Time) Payload {
	return Payload{JobID: jobID, UpdatedAt: at.UTC()}
}

// Lookup returns the override for a detection, if any.
func (p Payload) Lookup(detectionID string) (Instance, bool) {
	inst, ok := p.byID[detectionID]
	return inst, ok
}

// Len is the number of stored overrides.
func (p Payload) Len() int {
	return len(p.order)
}

// Instances returns the overrides in insertion order.
func (p Payload) Instances() []Instance {
	out := make([]Instance, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.byID[id])
	}
	return out
}

// Wire converts the payload to its interchange form.
func (p Payload) Wire() contract.ReviewPayload {
	instances := make([]contract.ReviewInstance, 0, len(p.order))
	for _, inst := range p.Instances() {
		instances = append(instances, contract.ReviewInstance{
			DetectionID:      inst.DetectionID,
			Accepted:         cloneBool(inst.Accepted),
			RelabelAssetType: cloneString(inst.RelabelAssetType),
		})
	}
	return contract.ReviewPayload{
		JobID:     p.JobID,
		UpdatedAt: FormatTimestamp(p.UpdatedAt),
		Instances: instances,
	}
}

// FromWire builds a payload from a validated interchange document.
// Instances that carry no override are dropped.
func FromWire(w contract.ReviewPayload) (Payload, error) {
	at, err := time.Parse(time.RFC3339Nano, w.UpdatedAt)
	if err != nil {
		return Payload{}, fmt.Errorf("review: updatedAt: %w", err)
	}
	p := Empty(w.JobID, at)
	for _, wi := range w.Instances {
		if _, dup := p.byID[wi.DetectionID]; dup {
			return Payload{}, fmt.Errorf("review: duplicate instance for detection %q", wi.DetectionID)
		}
		p = p.put(Instance{
			DetectionID:      wi.DetectionID,
			Accepted:         cloneBool(wi.Accepted),
			RelabelAssetType: cloneString(wi.RelabelAssetType),
		})
	}
	return p, nil
}

// Decode validates raw JSON against the review payload contract and builds
// a payload from it.
func Decode(data []byte) (Payload, error) {
	w, err := contract.ValidateOrFail(contract.ReviewPayloadSchema, json.RawMessage(data))
	if err != nil {
		return Payload{}, err
	}
	return FromWire(w)
}

// MarshalJSON emits the wire form.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Wire())
}

// UnmarshalJSON accepts only documents that satisfy the review contract.
func (p *Payload) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// FormatTimestamp renders t in the wire layout. Instants finer than a
// millisecond keep their digits so a parsed updatedAt formats back unchanged.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()%int(time.Millisecond) != 0 {
		return t.Format(time.RFC3339Nano)
	}
	return t.Format(TimestampLayout)
}

// put returns a copy of p with inst upserted, or removed when empty.
func (p Payload) put(inst Instance) Payload {
	next := Payload{
		JobID:     p.JobID,
		UpdatedAt: p.UpdatedAt,
		byID:      make(map[string]Instance, len(p.byID)+1),
		order:     make([]string, 0, len(p.order)+1),
	}

	_, existed := p.byID[inst.DetectionID]
	keep := !inst.IsEmpty()

	for _, id := range p.order {
		if id == inst.DetectionID {
			if keep {
				next.order = append(next.order, id)
				next.byID[id] = inst
			}
			continue
		}
		next.order = append(next.order, id)
		next.byID[id] = p.byID[id]
	}
	if keep && !existed {
		next.order = append(next.order, inst.DetectionID)
		next.byID[inst.DetectionID] = inst
	}
	return next
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
