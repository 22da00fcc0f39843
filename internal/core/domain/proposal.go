package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// OperationKind names an Operation variant
type OperationKind string

const (
	OpReplaceRange   OperationKind = "replace_range"
	OpReplaceField   OperationKind = "replace_field"
	OpAttachArtifact OperationKind = "attach_artifact"
)

// Operation is one primitive edit inside a Proposal.
// The variant set is closed: ReplaceRangeOp, ReplaceFieldOp and AttachArtifactOp.
type Operation interface {
	Kind() OperationKind
	isOperation()
}

// ReplaceRangeOp replaces a plain-text range of a section with new text
type ReplaceRangeOp struct {
	SectionID string `json:"section_id"`
	Start     int    `json:"start"`
	Length    int    `json:"length"`
	Text      string `json:"text"`
}

// ReplaceFieldOp replaces a named structured field value
type ReplaceFieldOp struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AttachArtifactOp attaches a stored artifact to a section under a role tag
type AttachArtifactOp struct {
	SectionID  string `json:"section_id"`
	ArtifactID string `json:"artifact_id"`
	Role       string `json:"role"`
}

func (ReplaceRangeOp) Kind() OperationKind   { return OpReplaceRange }
func (ReplaceFieldOp) Kind() OperationKind   { return OpReplaceField }
func (AttachArtifactOp) Kind() OperationKind { return OpAttachArtifact }

func (ReplaceRangeOp) isOperation()   {}
func (ReplaceFieldOp) isOperation()   {}
func (AttachArtifactOp) isOperation() {}

// Proposal is the reviewable, not-yet-applied outcome of one action invocation
type Proposal struct {
	ID          string      `json:"id"`
	SectionID   string      `json:"section_id"`
	Summary     string      `json:"summary"`
	ActionID    ActionID    `json:"action_id"`
	ProviderID  ProviderID  `json:"provider_id"`
	RequestID   string      `json:"request_id"`
	CreatedAt   time.Time   `json:"created_at"`
	Instruction string      `json:"instruction,omitempty"`
	Operations  []Operation `json:"-"`
	ArtifactIDs []string    `json:"artifact_ids,omitempty"`
}

// operationEnvelope is the wire form of an Operation
type operationEnvelope struct {
	Kind OperationKind   `json:"kind"`
	Op   json.RawMessage `json:"op"`
}

// MarshalJSON encodes operations with an explicit kind tag
func (p Proposal) MarshalJSON() ([]byte, error) {
	type plain Proposal
	w := struct {
		plain
		Operations []operationEnvelope `json:"operations"`
	}{plain: plain(p)}
	for _, op := range p.Operations {
		raw, err := json.Marshal(op)
		if err != nil {
			return nil, err
		}
		w.Operations = append(w.Operations, operationEnvelope{Kind: op.Kind(), Op: raw})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes operations by kind tag
func (p *Proposal) UnmarshalJSON(data []byte) error {
	type plain Proposal
	var w struct {
		plain
		Operations []operationEnvelope `json:"operations"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Proposal(w.plain)
	p.Operations = nil
	for _, env := range w.Operations {
		op, err := decodeOperation(env)
		if err != nil {
			return err
		}
		p.Operations = append(p.Operations, op)
	}
	return nil
}

func decodeOperation(env operationEnvelope) (Operation, error) {
	switch env.Kind {
	case OpReplaceRange:
		var op ReplaceRangeOp
		err := json.Unmarshal(env.Op, &op)
		return op, err
	case OpReplaceField:
		var op ReplaceFieldOp
		err := json.Unmarshal(env.Op, &op)
		return op, err
	case OpAttachArtifact:
		var op AttachArtifactOp
		err := json.Unmarshal(env.Op, &op)
		return op, err
	default:
		return nil, fmt.Errorf("%w: operation kind %q", ErrInvalidInput, env.Kind)
	}
}

// Validate checks the proposal's operations against the single-section invariant
func (p *Proposal) Validate() error {
	if len(p.Operations) == 0 {
		return fmt.Errorf("%w: proposal has no operations", ErrInvalidInput)
	}
	for _, op := range p.Operations {
		switch o := op.(type) {
		case ReplaceRangeOp:
			if o.Start < 0 || o.Length < 0 {
				return fmt.Errorf("%w: negative range", ErrInvalidInput)
			}
			if o.SectionID != p.SectionID {
				return fmt.Errorf("%w: operation targets section %s, proposal %s", ErrInvalidInput, o.SectionID, p.SectionID)
			}
		case AttachArtifactOp:
			if o.SectionID != p.SectionID {
				return fmt.Errorf("%w: operation targets section %s, proposal %s", ErrInvalidInput, o.SectionID, p.SectionID)
			}
		case ReplaceFieldOp:
			if o.Key == "" {
				return fmt.Errorf("%w: empty field key", ErrInvalidInput)
			}
		}
	}
	return nil
}
