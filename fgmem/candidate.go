package fgmem

import "github.com/pkg/errors"

// CandidateState tracks where an AliasCandidate sits in its lifecycle. The
// only legal transitions are CandidateInUse -> CandidateReleased via
// AliasingEngine.MarkReleased and CandidateReleased -> CandidateInUse via a
// successful FindAlias.
type CandidateState uint32

const (
	CandidateInUse CandidateState = iota
	CandidateReleased
)

var candidateStateMapping = map[CandidateState]string{
	CandidateInUse:    "InUse",
	CandidateReleased: "Released",
}

func (s CandidateState) String() string {
	str, ok := candidateStateMapping[s]
	if !ok {
		return "unknown"
	}
	return str
}

// AliasCandidate is one tracked resource inside the AliasingEngine. The
// engine holds the bookkeeping only: the handle is non-owning and the
// physical storage behind it belongs entirely to the caller.
type AliasCandidate struct {
	Resource    ResourceHandle
	Requirement MemoryRequirement
	Scope       LifetimeScope

	State CandidateState
	// ReleasedAtFrame is the frame number stamped by MarkReleased. It is
	// meaningful only while State == CandidateReleased and is used to break
	// best-fit ties (oldest release wins) and to prune stale candidates.
	ReleasedAtFrame uint64
}

func (c *AliasCandidate) Validate() error {
	if c.Resource == NoResource {
		return errors.New("alias candidate has a nil resource handle")
	}
	if c.State == CandidateInUse && c.ReleasedAtFrame != 0 {
		return errors.Errorf("in-use candidate %d carries a release frame stamp %d", c.Resource, c.ReleasedAtFrame)
	}
	return c.Requirement.Validate()
}
